package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
)

const defaultDecompositionCap = 15

// Decomposer turns one question into a bounded, ordered list of scoped
// sub-questions. Template decomposition is tried first; the LLM free-text
// fallback only runs when templates produce nothing.
type Decomposer struct {
	generator ports.AnswerGenerator
	cap       int
	logger    *slog.Logger
}

func NewDecomposer(generator ports.AnswerGenerator, cap int, logger *slog.Logger) *Decomposer {
	if cap <= 0 {
		cap = defaultDecompositionCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Decomposer{generator: generator, cap: cap, logger: logger}
}

// Decompose never fails: every fallback ends in at least the singleton list
// containing the original question.
func (d *Decomposer) Decompose(
	ctx context.Context,
	question domain.Question,
	questionType domain.QuestionType,
	params domain.ExtractedParameters,
) []domain.SubQuestion {
	if !shouldDecompose(questionType, params) {
		return []domain.SubQuestion{singletonSubQuestion(question.Text, params)}
	}

	subs := d.templateDecompose(question, params)
	if len(subs) == 0 {
		subs = d.freeTextDecompose(ctx, question)
	}
	if len(subs) == 0 {
		subs = []domain.SubQuestion{singletonSubQuestion(question.Text, params)}
	}

	subs = dedupeSubQuestions(subs)
	return capSubQuestions(subs, d.cap)
}

// Decomposition policy: comparison, trend and change always decompose;
// summary only for wide scopes; fact never.
func shouldDecompose(questionType domain.QuestionType, params domain.ExtractedParameters) bool {
	switch questionType {
	case domain.TypeComparison, domain.TypeTrend, domain.TypeChange:
		return true
	case domain.TypeSummary:
		return params.YearSpan() > 2 || len(params.Organizations) > 1 || len(params.Topics) > 1
	case domain.TypeFact:
		return false
	default:
		return false
	}
}

// templateDecompose builds the (years x organizations) cross-product of
// single_year sub-questions plus one multi_year synthesis question.
func (d *Decomposer) templateDecompose(question domain.Question, params domain.ExtractedParameters) []domain.SubQuestion {
	years := params.Years()
	if len(years) == 0 {
		return nil
	}

	orgs := params.Organizations
	if len(orgs) == 0 {
		orgs = []string{""}
	}
	topic := question.Text
	if len(params.Topics) > 0 {
		topic = params.Topics[0]
	}

	subs := make([]domain.SubQuestion, 0, len(years)*len(orgs)+1)
	for _, year := range years {
		for _, org := range orgs {
			subs = append(subs, domain.SubQuestion{
				Text:       scopedQuestionText(topic, org, year),
				TargetYear: year,
				TargetOrg:  org,
				Strategy:   domain.StrategySingleYear,
			})
		}
	}

	subs = append(subs, domain.SubQuestion{
		Text:     fmt.Sprintf("Synthesis across %d-%d: %s", years[0], years[len(years)-1], question.Text),
		Strategy: domain.StrategyMultiYear,
	})
	return subs
}

func scopedQuestionText(topic, org string, year int) string {
	if org != "" {
		return fmt.Sprintf("Positions of %s on %s in %d", org, topic, year)
	}
	return fmt.Sprintf("Positions on %s in %d", topic, year)
}

// freeTextDecompose asks the generator for sub-questions and normalizes each
// line back into the SubQuestion shape.
func (d *Decomposer) freeTextDecompose(ctx context.Context, question domain.Question) []domain.SubQuestion {
	raw, err := d.generator.GenerateJSONFromPrompt(ctx, buildDecompositionPrompt(question.Text))
	if err != nil {
		d.logger.Warn("free_text_decomposition_failed", "question_id", question.ID, "error", err)
		return nil
	}

	var parsed struct {
		SubQuestions []string `json:"sub_questions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		d.logger.Warn("free_text_decomposition_unparseable", "question_id", question.ID, "error", err)
		return nil
	}

	subs := make([]domain.SubQuestion, 0, len(parsed.SubQuestions))
	for _, text := range parsed.SubQuestions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		subs = append(subs, normalizeSubQuestion(text))
	}
	return subs
}

// normalizeSubQuestion regex-extracts target year and organization from
// free text and enforces the target-year/strategy invariant.
func normalizeSubQuestion(text string) domain.SubQuestion {
	sub := domain.SubQuestion{Text: text, Strategy: domain.StrategyMultiYear}

	if years := uniqueSortedYears(extractYears(text)); len(years) == 1 {
		sub.TargetYear = years[0]
		sub.Strategy = domain.StrategySingleYear
	}
	if orgs := extractOrganizations(text); len(orgs) > 0 {
		sub.TargetOrg = orgs[0]
	}
	return sub
}

func singletonSubQuestion(text string, params domain.ExtractedParameters) domain.SubQuestion {
	years := params.Years()
	if len(years) == 1 {
		return domain.SubQuestion{
			Text:       text,
			TargetYear: years[0],
			Strategy:   domain.StrategySingleYear,
		}
	}
	return domain.SubQuestion{Text: text, Strategy: domain.StrategyMultiYear}
}

func dedupeSubQuestions(subs []domain.SubQuestion) []domain.SubQuestion {
	seen := make(map[string]struct{}, len(subs))
	out := make([]domain.SubQuestion, 0, len(subs))
	for _, sub := range subs {
		key := strings.ToLower(strings.TrimSpace(sub.Text))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sub)
	}
	return out
}

// capSubQuestions truncates to the cap, dropping lowest-priority entries
// first. The trailing multi_year synthesis question outranks late
// cross-product entries and survives truncation.
func capSubQuestions(subs []domain.SubQuestion, cap int) []domain.SubQuestion {
	if len(subs) <= cap {
		return subs
	}

	last := subs[len(subs)-1]
	if last.Strategy == domain.StrategyMultiYear {
		out := make([]domain.SubQuestion, 0, cap)
		out = append(out, subs[:cap-1]...)
		out = append(out, last)
		return out
	}
	return subs[:cap]
}

func buildDecompositionPrompt(question string) string {
	return fmt.Sprintf(`Break the question about parliamentary debates into focused sub-questions.
Return strict JSON: {"sub_questions": ["...", "..."]}.
Each sub-question should target one year and one faction where possible.
No markdown, no extra keys.

Question:
%s`, question)
}
