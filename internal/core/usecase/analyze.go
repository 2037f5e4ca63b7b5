package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
)

// QuestionAnalyzer classifies intent and extracts structured parameters.
// Classification failures are non-fatal: the analyzer fails open to complex
// intent and keeps the deterministic extraction.
type QuestionAnalyzer struct {
	classifier ports.IntentClassifier
	clock      func() time.Time
	logger     *slog.Logger
}

func NewQuestionAnalyzer(classifier ports.IntentClassifier, logger *slog.Logger) *QuestionAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionAnalyzer{
		classifier: classifier,
		clock:      func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// WithClock pins the reference time for relative-expression resolution.
func (a *QuestionAnalyzer) WithClock(clock func() time.Time) *QuestionAnalyzer {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// mainTopicsPattern recognizes "main topics/positions" phrasing for the
// deterministic simple-intent guardrail.
var mainTopicsPattern = regexp.MustCompile(
	`(?i)\b(?:main|central|key|wichtigsten|zentralen|haupt\w*)\s*(?:topics?|positions?|themen|positionen|schwerpunkte)\b|\bhauptthemen\b|\bkernthemen\b`)

var comparisonCue = regexp.MustCompile(`(?i)\bvs\.?\b|\bversus\b|\bcompared?\b|\bcomparison\b|\bvergleich\w*\b|\bgegen(?:ü|ue)ber\b|\bunterschied\w*\b`)
var trendCue = regexp.MustCompile(`(?i)\btrend\b|\bentwickelt\w*\b|\bentwicklung\b|\b(?:ü|ue)ber\s+die\s+jahre\b|\bover\s+(?:the\s+)?(?:years|time)\b|\bevolv\w+\b`)
var changeCue = regexp.MustCompile(`(?i)\bchanged?\b|\bver(?:ä|ae)ndert\w*\b|\bwandel\b|\bgewandelt\b|\bshift\w*\b`)
var factCue = regexp.MustCompile(`(?i)^\s*(?:wann|wer|wie\s+viele?|wie\s+oft|when|who|how\s+many|how\s+often)\b`)

// Analyze never fails the pipeline: classifier errors degrade to complex
// intent with a logged warning.
func (a *QuestionAnalyzer) Analyze(ctx context.Context, question domain.Question) (domain.Intent, domain.QuestionType, domain.ExtractedParameters) {
	now := a.clock()

	params := extractTimeRange(question.Text, now)
	params.Organizations = extractOrganizations(question.Text)
	params.Topics = extractTopics(question.Text)
	questionType := detectQuestionType(question.Text)

	// Guardrail: one time anchor, one subject, "main topics/positions"
	// phrasing forces simple intent. The classifier is not consulted for
	// these questions; it is known to over-flag them as complex.
	if a.guardrailSimple(question.Text, params) {
		return domain.IntentSimple, questionType, params
	}

	verdict, err := a.classifier.Classify(ctx, question.Text)
	if err != nil {
		a.logger.Warn("classification_failed",
			"question_id", question.ID,
			"error", err,
		)
		return domain.IntentComplex, questionType, params
	}

	intent := verdict.Intent
	if intent != domain.IntentSimple && intent != domain.IntentComplex {
		a.logger.Warn("classification_verdict_invalid",
			"question_id", question.ID,
			"intent", string(verdict.Intent),
		)
		intent = domain.IntentComplex
	}

	if isKnownQuestionType(verdict.QuestionType) {
		questionType = verdict.QuestionType
	}

	// Entities: union of deterministic extraction and classifier output.
	// Temporal scope: deterministic extraction wins outright, since the
	// discrete-comparison rule must not be overridden by the classifier.
	params.Organizations = mergeStringSets(params.Organizations, verdict.Organizations)
	params.Persons = mergeStringSets(params.Persons, verdict.Persons)
	params.Topics = mergeStringSets(params.Topics, verdict.Topics)
	if len(params.SpecificYears) == 0 && len(verdict.Years) > 0 {
		years := uniqueSortedYears(verdict.Years)
		params.SpecificYears = years
		params.StartYear = years[0]
		params.EndYear = years[len(years)-1]
	}

	return intent, questionType, params
}

func (a *QuestionAnalyzer) guardrailSimple(text string, params domain.ExtractedParameters) bool {
	if !mainTopicsPattern.MatchString(text) {
		return false
	}
	oneAnchor := len(params.SpecificYears) == 1 ||
		(params.StartYear != 0 && params.StartYear == params.EndYear)
	oneSubject := len(params.Organizations)+len(params.Persons) == 1
	return oneAnchor && oneSubject
}

func detectQuestionType(text string) domain.QuestionType {
	switch {
	case comparisonCue.MatchString(text):
		return domain.TypeComparison
	case changeCue.MatchString(text):
		return domain.TypeChange
	case trendCue.MatchString(text):
		return domain.TypeTrend
	case factCue.MatchString(text):
		return domain.TypeFact
	default:
		return domain.TypeSummary
	}
}

func isKnownQuestionType(t domain.QuestionType) bool {
	switch t {
	case domain.TypeFact, domain.TypeSummary, domain.TypeComparison, domain.TypeTrend, domain.TypeChange:
		return true
	default:
		return false
	}
}
