package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/observability/metrics"
)

const defaultRegenerationCap = 2

// RegenerateFunc produces a corrected answer from the previous attempt and a
// structured correction payload. The orchestrator binds question and evidence
// into it so the verifier stays ignorant of prompt shape.
type RegenerateFunc func(ctx context.Context, previous string, correction domain.CorrectionPayload) (string, error)

// synthesisMarkers is checked in order; the first match starts the synthesis
// section. No match means the whole answer counts as synthesis.
var synthesisMarkers = []string{
	"## synthesis",
	"## zusammenfassung",
	"## fazit",
	"synthesis:",
	"zusammenfassung:",
	"fazit:",
}

var (
	bracketRefPattern  = regexp.MustCompile(`\[(\d{1,3})\]`)
	evidenceRefPattern = regexp.MustCompile(`(?i)evidence\s+unit\s+(\d{1,3})`)
	sentencePattern    = regexp.MustCompile(`[^.!?]+[.!?]?`)
)

// defaultRequiredDetails is the built-in must-cite lexicon; deployments
// override it through the taxonomy seed file.
var defaultRequiredDetails = []string{
	"kohleausstieg",
	"mindestlohn",
	"schuldenbremse",
	"klimaschutzgesetz",
	"paris",
}

// CoverageVerifier checks that a generated answer actually uses the evidence
// and the critical detail phrases it was given, regenerating within a fixed
// bound and accepting the remaining gap after that.
type CoverageVerifier struct {
	requiredDetails []string
	regenCap        int
	metrics         *metrics.PipelineMetrics
	logger          *slog.Logger
}

func NewCoverageVerifier(requiredDetails []string, regenCap int, pipelineMetrics *metrics.PipelineMetrics, logger *slog.Logger) *CoverageVerifier {
	if len(requiredDetails) == 0 {
		requiredDetails = defaultRequiredDetails
	}
	if regenCap <= 0 {
		regenCap = defaultRegenerationCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CoverageVerifier{
		requiredDetails: requiredDetails,
		regenCap:        regenCap,
		metrics:         pipelineMetrics,
		logger:          logger,
	}
}

// Verify never fails the request: regeneration errors keep the previous
// answer, and gaps surviving the regeneration bound are reported, not fatal.
func (v *CoverageVerifier) Verify(
	ctx context.Context,
	answer string,
	evidence []domain.EvidenceUnit,
	regenerate RegenerateFunc,
) (domain.CoverageReport, string) {
	report := domain.CoverageReport{TotalEvidence: len(evidence)}
	if len(evidence) == 0 || strings.TrimSpace(answer) == "" {
		return report, answer
	}

	regen := func(correction domain.CorrectionPayload) bool {
		if report.Regenerations >= v.regenCap || regenerate == nil || ctx.Err() != nil {
			return false
		}
		report.Regenerations++
		if v.metrics != nil {
			v.metrics.ObserveRegeneration()
		}
		corrected, err := regenerate(ctx, answer, correction)
		if err != nil {
			v.logger.Warn("coverage_regeneration_failed", "kind", string(correction.Kind), "error", err)
			return false
		}
		if strings.TrimSpace(corrected) != "" {
			answer = corrected
		}
		return true
	}

	// Material coverage: every evidence unit should be referenced at least
	// once. One corrective attempt, accepted either way.
	report.ReferencedIDs, report.MissingIDs = materialCoverage(answer, len(evidence))
	if len(report.MissingIDs) > 0 {
		if regen(domain.CorrectionPayload{
			Kind:         domain.CorrectionMissingUnits,
			MissingUnits: report.MissingIDs,
		}) {
			report.ReferencedIDs, report.MissingIDs = materialCoverage(answer, len(evidence))
		}
	}

	// Required details: a total miss outranks a detail acknowledged in the
	// body but dropped from the synthesis section.
	pool := poolDetails(v.requiredDetails, evidence)
	totalMisses, droppedFromSynthesis := detailCoverage(answer, pool)
	if len(totalMisses) > 0 {
		if regen(domain.CorrectionPayload{
			Kind:          domain.CorrectionMissingDetail,
			DetailPhrases: totalMisses,
		}) {
			totalMisses, droppedFromSynthesis = detailCoverage(answer, pool)
		}
	}
	if len(droppedFromSynthesis) > 0 {
		if regen(domain.CorrectionPayload{
			Kind:              domain.CorrectionDroppedDetail,
			DetailPhrases:     droppedFromSynthesis,
			EvidenceSentences: evidenceSentences(droppedFromSynthesis, evidence),
		}) {
			totalMisses, droppedFromSynthesis = detailCoverage(answer, pool)
		}
	}

	report.MissingDetails = append(append([]string{}, totalMisses...), droppedFromSynthesis...)
	if len(report.MissingIDs) > 0 || len(report.MissingDetails) > 0 {
		report.GapAccepted = true
		if v.metrics != nil {
			v.metrics.ObserveCoverageGap()
		}
		v.logger.Warn("coverage_gap_accepted",
			"missing_ids", report.MissingIDs,
			"missing_details", report.MissingDetails,
			"regenerations", report.Regenerations,
		)
	}
	return report, answer
}

// materialCoverage extracts 1-based evidence references from the full answer
// and returns the referenced set and its complement within [1, total].
func materialCoverage(answer string, total int) (referenced, missing []int) {
	seen := make(map[int]struct{})
	for _, pattern := range []*regexp.Regexp{bracketRefPattern, evidenceRefPattern} {
		for _, match := range pattern.FindAllStringSubmatch(answer, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil || n < 1 || n > total {
				continue
			}
			seen[n] = struct{}{}
		}
	}

	referenced = make([]int, 0, len(seen))
	for n := range seen {
		referenced = append(referenced, n)
	}
	sort.Ints(referenced)

	for n := 1; n <= total; n++ {
		if _, ok := seen[n]; !ok {
			missing = append(missing, n)
		}
	}
	return referenced, missing
}

// poolDetails keeps only the lexicon phrases that actually occur in the
// evidence pool; a detail never retrieved cannot be demanded of the answer.
func poolDetails(lexicon []string, evidence []domain.EvidenceUnit) []string {
	var corpus strings.Builder
	for _, unit := range evidence {
		corpus.WriteString(strings.ToLower(unit.Text))
		corpus.WriteByte(' ')
	}
	body := corpus.String()

	out := make([]string, 0, len(lexicon))
	for _, phrase := range lexicon {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" {
			continue
		}
		if strings.Contains(body, p) {
			out = append(out, p)
		}
	}
	return out
}

func detailCoverage(answer string, details []string) (totalMisses, droppedFromSynthesis []string) {
	lowerAnswer := strings.ToLower(answer)
	synthesis := synthesisSection(lowerAnswer)
	for _, phrase := range details {
		inAnswer := strings.Contains(lowerAnswer, phrase)
		inSynthesis := strings.Contains(synthesis, phrase)
		switch {
		case !inAnswer:
			totalMisses = append(totalMisses, phrase)
		case !inSynthesis:
			droppedFromSynthesis = append(droppedFromSynthesis, phrase)
		}
	}
	return totalMisses, droppedFromSynthesis
}

func synthesisSection(lowerAnswer string) string {
	for _, marker := range synthesisMarkers {
		if idx := strings.Index(lowerAnswer, marker); idx >= 0 {
			return lowerAnswer[idx:]
		}
	}
	return lowerAnswer
}

// evidenceSentences quotes, per phrase, the first evidence sentence
// containing it, so the correction can point at the exact source wording.
func evidenceSentences(phrases []string, evidence []domain.EvidenceUnit) []string {
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		if sentence := findSentence(phrase, evidence); sentence != "" {
			out = append(out, sentence)
		}
	}
	return out
}

func findSentence(phrase string, evidence []domain.EvidenceUnit) string {
	for _, unit := range evidence {
		if !strings.Contains(strings.ToLower(unit.Text), phrase) {
			continue
		}
		for _, sentence := range sentencePattern.FindAllString(unit.Text, -1) {
			if strings.Contains(strings.ToLower(sentence), phrase) {
				return strings.TrimSpace(sentence)
			}
		}
	}
	return ""
}
