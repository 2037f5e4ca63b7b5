package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/taxonomy"
)

const (
	defaultExpansionThreshold = 5
	defaultTagCap             = 15
	defaultExpansionQueryCap  = 30
)

type GateConfig struct {
	// ExpansionThreshold separates dimension-level from tag-level widening.
	ExpansionThreshold int
	// TagCap bounds how many tags contribute expansion queries.
	TagCap int
	// QueryCap bounds generated expansion query strings.
	QueryCap int
}

func (c GateConfig) normalized() GateConfig {
	if c.ExpansionThreshold <= 0 {
		c.ExpansionThreshold = defaultExpansionThreshold
	}
	if c.TagCap <= 0 {
		c.TagCap = defaultTagCap
	}
	if c.QueryCap <= 0 {
		c.QueryCap = defaultExpansionQueryCap
	}
	return c
}

// sensitiveTopics are summary-question areas that get one extra widening
// point: answers there lean on taxonomy context more than most.
var sensitiveTopics = map[string]struct{}{
	"migration":            {},
	"verteidigungspolitik": {},
	"klimapolitik":         {},
}

var examplePhrasing = []string{
	"concrete example", "specific example", "konkretes beispiel", "konkrete beispiele",
	"beispielprojekt", "welche projekte", "which projects",
}

// RelevanceGate decides whether and how far to widen retrieval through the
// taxonomy. Scoring is deterministic and monotonic: every matched signal only
// adds.
type RelevanceGate struct {
	store *taxonomy.Store
	cfg   GateConfig
}

func NewRelevanceGate(store *taxonomy.Store, cfg GateConfig) *RelevanceGate {
	return &RelevanceGate{store: store, cfg: cfg.normalized()}
}

func (g *RelevanceGate) Evaluate(
	question domain.Question,
	intent domain.Intent,
	questionType domain.QuestionType,
	params domain.ExtractedParameters,
) domain.RelevanceGateDecision {
	graph := g.store.Snapshot()
	lowerText := strings.ToLower(question.Text)

	score := 0
	reasons := make([]string, 0, 8)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, fmt.Sprintf("%s (+%d)", reason, points))
	}

	if intent == domain.IntentComplex {
		add(1, "complex intent")
	}
	if questionType == domain.TypeComparison || questionType == domain.TypeChange {
		add(2, "comparison/change question")
	}
	switch span := params.YearSpan(); {
	case span >= 2:
		add(2, "year span >= 2")
	case span >= 1:
		add(1, "year span >= 1")
	}
	if len(params.Organizations) >= 2 {
		add(1, "multiple organizations")
	}
	for _, phrase := range examplePhrasing {
		if strings.Contains(lowerText, phrase) {
			add(2, "asks for concrete examples")
			break
		}
	}
	if tagKeywordInQuestion(graph, lowerText) {
		add(3, "taxonomy tag keyword in question")
	}
	matchedTopics := matchTopics(graph, params.Topics)
	if len(matchedTopics) > 0 {
		add(2, "extracted topic in taxonomy")
	}
	if questionType == domain.TypeSummary && touchesSensitiveTopic(params.Topics) {
		add(1, "sensitive summary topic")
	}

	decision := domain.RelevanceGateDecision{
		Score:   score,
		Reasons: reasons,
		Level:   domain.ExpansionNone,
	}
	switch {
	case score == 0:
		return decision
	case score < g.cfg.ExpansionThreshold:
		decision.Triggered = true
		decision.Level = domain.ExpansionDimension
		return decision
	}

	decision.Triggered = true
	decision.Level = domain.ExpansionTag
	tags := g.selectTags(graph, matchedTopics, lowerText, params)
	decision.ExpansionQueries = buildExpansionQueries(tags, params, g.cfg.QueryCap)
	return decision
}

type scoredTag struct {
	tag   domain.TaxonomyTag
	score float64
}

// selectTags scores candidate tags reachable from the matched topics'
// dimensions and keeps the top TagCap by weighted score.
func (g *RelevanceGate) selectTags(
	graph domain.TaxonomyGraph,
	matchedTopics []domain.TaxonomyTopic,
	lowerText string,
	params domain.ExtractedParameters,
) []domain.TaxonomyTag {
	dimensionIDs := make(map[string]struct{})
	for _, topic := range matchedTopics {
		for _, dim := range topic.Dimensions {
			dimensionIDs[dim] = struct{}{}
		}
	}
	// No topic matched: every dimension is a candidate source, keyword
	// signals alone decide.
	if len(dimensionIDs) == 0 {
		for _, dim := range graph.Dimensions {
			dimensionIDs[dim.ID] = struct{}{}
		}
	}

	years := params.Years()
	candidates := make([]scoredTag, 0, 16)
	for _, dim := range graph.Dimensions {
		if _, ok := dimensionIDs[dim.ID]; !ok {
			continue
		}
		for _, tag := range dim.Tags {
			base := float64(yearOverlap(tag.ActiveYears, years)) +
				2*float64(stringOverlap(tag.Organizations, params.Organizations)) +
				3*float64(keywordTopicMatches(tag.Keywords, params.Topics)) +
				5*float64(keywordsInText(tag.Keywords, lowerText))
			if base == 0 {
				continue
			}
			weighted := base * domain.ClampTagWeight(tag.Weight)
			candidates = append(candidates, scoredTag{tag: tag, score: weighted})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tag.ID < candidates[j].tag.ID
	})
	if len(candidates) > g.cfg.TagCap {
		candidates = candidates[:g.cfg.TagCap]
	}

	out := make([]domain.TaxonomyTag, len(candidates))
	for i, c := range candidates {
		out[i] = c.tag
	}
	return out
}

// buildExpansionQueries substitutes {organization} and {year} into the kept
// tags' templates, deduplicated and capped.
func buildExpansionQueries(tags []domain.TaxonomyTag, params domain.ExtractedParameters, limit int) []string {
	orgs := params.Organizations
	if len(orgs) == 0 {
		orgs = []string{""}
	}
	years := params.Years()
	if len(years) == 0 {
		years = []int{0}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, tag := range tags {
		for _, template := range tag.QueryTemplates {
			for _, org := range orgs {
				for _, year := range years {
					query, ok := renderTemplate(template, org, year)
					if !ok {
						continue
					}
					key := strings.ToLower(query)
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
					out = append(out, query)
					if len(out) >= limit {
						return out
					}
				}
			}
		}
	}
	return out
}

// renderTemplate fills placeholders; a template whose placeholder has no
// value to fill is skipped rather than emitted half-rendered.
func renderTemplate(template, org string, year int) (string, bool) {
	query := template
	if strings.Contains(query, "{organization}") {
		if org == "" {
			return "", false
		}
		query = strings.ReplaceAll(query, "{organization}", org)
	}
	if strings.Contains(query, "{year}") {
		if year == 0 {
			return "", false
		}
		query = strings.ReplaceAll(query, "{year}", strconv.Itoa(year))
	}
	query = strings.TrimSpace(query)
	return query, query != ""
}

func matchTopics(graph domain.TaxonomyGraph, topics []string) []domain.TaxonomyTopic {
	matched := make([]domain.TaxonomyTopic, 0, 2)
	for _, topic := range graph.Topics {
		if topicMatches(topic, topics) {
			matched = append(matched, topic)
		}
	}
	return matched
}

func topicMatches(topic domain.TaxonomyTopic, extracted []string) bool {
	for _, name := range extracted {
		if strings.EqualFold(name, topic.Name) {
			return true
		}
		for _, keyword := range topic.Keywords {
			if strings.EqualFold(name, keyword) {
				return true
			}
		}
	}
	return false
}

func tagKeywordInQuestion(graph domain.TaxonomyGraph, lowerText string) bool {
	for _, dim := range graph.Dimensions {
		for _, tag := range dim.Tags {
			if keywordsInText(tag.Keywords, lowerText) > 0 {
				return true
			}
		}
	}
	return false
}

func touchesSensitiveTopic(topics []string) bool {
	for _, topic := range topics {
		if _, ok := sensitiveTopics[strings.ToLower(topic)]; ok {
			return true
		}
	}
	return false
}

func yearOverlap(a, b []int) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[int]struct{}, len(a))
	for _, y := range a {
		set[y] = struct{}{}
	}
	count := 0
	for _, y := range b {
		if _, ok := set[y]; ok {
			count++
		}
	}
	return count
}

func stringOverlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = struct{}{}
	}
	count := 0
	for _, s := range b {
		if _, ok := set[strings.ToLower(s)]; ok {
			count++
		}
	}
	return count
}

func keywordTopicMatches(keywords, topics []string) int {
	return stringOverlap(keywords, topics)
}

// keywordsInText counts a verbatim keyword hit once, per the scoring rule.
func keywordsInText(keywords []string, lowerText string) int {
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(lowerText, keyword) {
			return 1
		}
	}
	return 0
}
