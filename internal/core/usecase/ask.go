package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
	"github.com/plenumlab/speechqa/internal/observability/metrics"
)

const defaultAskTimeout = 120 * time.Second

// AskUseCase runs the whole pipeline for one question: analyze, decompose,
// gate, retrieve per sub-question, generate, verify coverage.
type AskUseCase struct {
	analyzer  *QuestionAnalyzer
	decompose *Decomposer
	expander  *QueryExpander
	gate      *RelevanceGate
	retriever *StratifiedRetriever
	verifier  *CoverageVerifier
	generator ports.AnswerGenerator
	runs      ports.RunRepository
	metrics   *metrics.PipelineMetrics
	service   string
	timeout   time.Duration
	topK      int
	clock     func() time.Time
	logger    *slog.Logger
}

type AskDeps struct {
	Analyzer  *QuestionAnalyzer
	Decompose *Decomposer
	Expander  *QueryExpander
	Gate      *RelevanceGate
	Retriever *StratifiedRetriever
	Verifier  *CoverageVerifier
	Generator ports.AnswerGenerator
	Runs      ports.RunRepository
	Metrics   *metrics.PipelineMetrics
	Service   string
	Timeout   time.Duration
	TopK      int
	Logger    *slog.Logger
}

func NewAskUseCase(deps AskDeps) *AskUseCase {
	if deps.Timeout <= 0 {
		deps.Timeout = defaultAskTimeout
	}
	if deps.TopK <= 0 {
		deps.TopK = defaultRetrievalTopK
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AskUseCase{
		analyzer:  deps.Analyzer,
		decompose: deps.Decompose,
		expander:  deps.Expander,
		gate:      deps.Gate,
		retriever: deps.Retriever,
		verifier:  deps.Verifier,
		generator: deps.Generator,
		runs:      deps.Runs,
		metrics:   deps.Metrics,
		service:   deps.Service,
		timeout:   deps.Timeout,
		topK:      deps.TopK,
		clock:     time.Now,
		logger:    deps.Logger,
	}
}

func (u *AskUseCase) WithClock(clock func() time.Time) *AskUseCase {
	u.clock = clock
	return u
}

func (u *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResult, error) {
	text := strings.TrimSpace(req.Question)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("empty question"))
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	started := u.clock()
	if u.metrics != nil {
		u.metrics.StartAsk()
	}

	result, err := u.run(ctx, text, req)

	outcome := "ok"
	if err != nil {
		outcome = outcomeLabel(err)
	}
	duration := u.clock().Sub(started)
	if u.metrics != nil {
		u.metrics.FinishAsk(u.service, outcome, duration)
	}
	u.recordRun(result, text, outcome, duration)

	return result, err
}

func (u *AskUseCase) run(ctx context.Context, text string, req domain.AskRequest) (*domain.AskResult, error) {
	question := domain.Question{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: u.clock().UTC(),
	}

	intent, questionType, params := u.analyzer.Analyze(ctx, question)
	if req.Organization != "" {
		params.Organizations = mergeStringSets(params.Organizations, []string{req.Organization})
	}

	subs := u.decompose.Decompose(ctx, question, questionType, params)
	gate := u.gate.Evaluate(question, intent, questionType, params)
	subs = append(subs, expansionSubQuestions(gate.ExpansionQueries)...)

	u.logger.Info("pipeline_planned",
		"question_id", question.ID,
		"intent", string(intent),
		"question_type", string(questionType),
		"sub_questions", len(subs),
		"expansion_level", string(gate.Level),
	)

	filter := domain.SearchFilter{
		Organization: req.Organization,
		Person:       req.Person,
	}
	years := params.Years()

	// A request may narrow the pool, never widen it past the configured cap.
	topK := u.topK
	if req.TopK > 0 && req.TopK < topK {
		topK = req.TopK
	}

	pool := make([]domain.EvidenceUnit, 0, topK*2)
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		variants := u.variantsFor(sub)
		res, err := u.retriever.Retrieve(ctx, sub, variants, years, filter)
		if err != nil {
			// An empty sub-question is not terminal; the run fails only
			// when the whole pool ends up empty.
			u.logger.Warn("sub_question_retrieval_failed", "question_id", question.ID, "sub_question", sub.Text, "error", err)
			continue
		}
		pool = append(pool, res.Evidence...)
	}

	evidence := mergeEvidence(pool, topK, u.retriever.cfg.FingerprintLen)
	if len(evidence) == 0 {
		return nil, domain.WrapError(domain.ErrNoMaterialFound, "ask",
			fmt.Errorf("no evidence across %d sub-questions", len(subs)))
	}

	answer, err := u.generator.GenerateAnswer(ctx, question.Text, evidence)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "ask", err)
	}

	regenerate := func(ctx context.Context, previous string, correction domain.CorrectionPayload) (string, error) {
		return u.generator.RegenerateAnswer(ctx, question.Text, evidence, previous, correction)
	}
	coverage, finalAnswer := u.verifier.Verify(ctx, answer, evidence, regenerate)

	return &domain.AskResult{
		RunID:            question.ID,
		Question:         question.Text,
		Intent:           intent,
		QuestionType:     questionType,
		Answer:           finalAnswer,
		Evidence:         evidence,
		SubQuestionCount: len(subs),
		Gate:             gate,
		Coverage:         coverage,
	}, nil
}

// variantsFor expands decomposed sub-questions; gate expansion queries are
// already targeted phrasing and go through verbatim.
func (u *AskUseCase) variantsFor(sub domain.SubQuestion) []domain.QueryVariant {
	if sub.FromExpansion {
		return []domain.QueryVariant{{Text: sub.Text, Strategy: domain.VariantVerbatim}}
	}
	return u.expander.Expand(sub.Text)
}

func expansionSubQuestions(queries []string) []domain.SubQuestion {
	subs := make([]domain.SubQuestion, 0, len(queries))
	for _, q := range queries {
		subs = append(subs, domain.SubQuestion{
			Text:          q,
			Strategy:      domain.StrategyMultiYear,
			FromExpansion: true,
		})
	}
	return subs
}

func (u *AskUseCase) recordRun(result *domain.AskResult, question, outcome string, duration time.Duration) {
	if u.runs == nil {
		return
	}

	run := &domain.AskRun{
		Question:  question,
		Outcome:   outcome,
		Duration:  duration,
		CreatedAt: u.clock().UTC(),
	}
	if result != nil {
		run.ID = result.RunID
		run.Intent = result.Intent
		run.QuestionType = result.QuestionType
		run.SubQuestions = result.SubQuestionCount
		run.EvidenceCount = len(result.Evidence)
		run.Regenerations = result.Coverage.Regenerations
		run.CoverageGap = result.Coverage.GapAccepted
	} else {
		run.ID = uuid.NewString()
	}

	// Audit logging is best effort and never fails the request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.runs.CreateRun(ctx, run); err != nil {
		u.logger.Warn("run_audit_failed", "run_id", run.ID, "error", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrNoMaterialFound):
		return "no_material"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrGeneration):
		return "generation_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
