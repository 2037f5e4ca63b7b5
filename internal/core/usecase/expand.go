package usecase

import (
	"sort"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// QueryExpander builds cheap lexical variants of one sub-question text.
// Everything here is table-driven; no network calls.
type QueryExpander struct {
	stopwords     map[string]struct{}
	actionLexicon map[string][]string
}

func NewQueryExpander() *QueryExpander {
	return &QueryExpander{
		stopwords:     buildStopwordSet(),
		actionLexicon: defaultActionLexicon(),
	}
}

// Expand returns 2-3 deduplicated variants: verbatim, keyword-extracted and,
// when a policy concept from the lexicon appears, action-augmented.
func (e *QueryExpander) Expand(text string) []domain.QueryVariant {
	text = strings.TrimSpace(text)
	variants := []domain.QueryVariant{
		{Text: text, Strategy: domain.VariantVerbatim},
	}

	stripped := e.stripFunctionWords(text)
	if stripped != "" && !strings.EqualFold(stripped, text) {
		variants = append(variants, domain.QueryVariant{
			Text:     stripped,
			Strategy: domain.VariantKeywordExtracted,
		})
	}

	if augmented := e.augmentWithActions(stripped); augmented != "" {
		variants = append(variants, domain.QueryVariant{
			Text:     augmented,
			Strategy: domain.VariantActionAugmented,
		})
	}

	return dedupeVariants(variants)
}

// stripFunctionWords removes interrogatives, auxiliary verbs and prepositions
// via the fixed stopword table, keeping original casing of surviving tokens.
func (e *QueryExpander) stripFunctionWords(text string) string {
	fields := strings.Fields(text)
	kept := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.ToLower(strings.Trim(field, ".,;:!?\"'()"))
		if token == "" {
			continue
		}
		if _, stop := e.stopwords[token]; stop {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// augmentWithActions appends canonical action verbs when the stripped text
// contains a policy concept from the lexicon. Semantic indexes under-rank
// rare policy terms against generic discourse; the co-occurring action words
// raise their effective weight without a model call.
func (e *QueryExpander) augmentWithActions(stripped string) string {
	if stripped == "" {
		return ""
	}
	lower := strings.ToLower(stripped)

	concepts := make([]string, 0, len(e.actionLexicon))
	for concept := range e.actionLexicon {
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)

	appended := make([]string, 0, 4)
	seen := make(map[string]struct{})
	for _, concept := range concepts {
		if !strings.Contains(lower, concept) {
			continue
		}
		for _, action := range e.actionLexicon[concept] {
			if strings.Contains(lower, action) {
				continue
			}
			if _, ok := seen[action]; ok {
				continue
			}
			seen[action] = struct{}{}
			appended = append(appended, action)
		}
	}
	if len(appended) == 0 {
		return ""
	}
	return stripped + " " + strings.Join(appended, " ")
}

func dedupeVariants(variants []domain.QueryVariant) []domain.QueryVariant {
	seen := make(map[string]struct{}, len(variants))
	out := make([]domain.QueryVariant, 0, len(variants))
	for _, v := range variants {
		key := strings.ToLower(strings.TrimSpace(v.Text))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func buildStopwordSet() map[string]struct{} {
	words := []string{
		// interrogatives
		"what", "which", "who", "whom", "when", "where", "why", "how",
		"was", "wie", "welche", "welcher", "welches", "wer", "wann", "warum", "wieso", "wo",
		// auxiliaries
		"is", "are", "am", "be", "been", "do", "does", "did", "has", "have", "had",
		"ist", "sind", "war", "waren", "hat", "haben", "hatte", "hatten", "wird", "werden", "wurde", "wurden",
		// prepositions and articles
		"in", "on", "at", "of", "to", "for", "from", "with", "about", "by",
		"im", "am", "an", "auf", "aus", "bei", "der", "die", "das", "den", "dem", "des",
		"ein", "eine", "einen", "einem", "einer", "zu", "zur", "zum", "für", "von", "über", "und", "oder",
		"the", "a",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// defaultActionLexicon maps policy concepts to the action verbs that
// canonically co-occur with them in plenary speech.
func defaultActionLexicon() map[string][]string {
	return map[string][]string{
		"klimaschutz":     {"fordern", "beschließen", "umsetzen"},
		"kohleausstieg":   {"beschließen", "vorziehen"},
		"migration":       {"begrenzen", "steuern", "regeln"},
		"asyl":            {"beantragen", "verschärfen"},
		"rente":           {"sichern", "reformieren", "erhöhen"},
		"mindestlohn":     {"einführen", "erhöhen"},
		"digitalisierung": {"vorantreiben", "fördern", "ausbauen"},
		"pflege":          {"stärken", "finanzieren"},
		"wohnungsbau":     {"fördern", "beschleunigen"},
		"schuldenbremse":  {"einhalten", "aussetzen", "reformieren"},
		"climate":         {"demand", "regulate", "implement"},
		"pension":         {"secure", "reform"},
	}
}
