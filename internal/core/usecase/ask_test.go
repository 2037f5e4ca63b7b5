package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/taxonomy"
)

type askFixture struct {
	usecase    *AskUseCase
	classifier *fakeClassifier
	generator  *fakeGenerator
	index      *fakeIndex
	runs       *fakeRuns
}

func newAskFixture(index *fakeIndex, generator *fakeGenerator) *askFixture {
	classifier := &fakeClassifier{
		verdict: domain.ClassifierVerdict{Intent: domain.IntentComplex},
	}
	runs := &fakeRuns{}
	logger := testLogger()

	usecase := NewAskUseCase(AskDeps{
		Analyzer:  NewQuestionAnalyzer(classifier, logger).WithClock(fixedClock),
		Decompose: NewDecomposer(generator, 0, logger),
		Expander:  NewQueryExpander(),
		Gate:      NewRelevanceGate(taxonomy.NewStore(testGraph()), GateConfig{}),
		Retriever: newTestRetriever(index),
		Verifier:  NewCoverageVerifier(nil, 2, nil, logger),
		Generator: generator,
		Runs:      runs,
		Service:   "test",
		Logger:    logger,
	}).WithClock(fixedClock)

	return &askFixture{
		usecase:    usecase,
		classifier: classifier,
		generator:  generator,
		index:      index,
		runs:       runs,
	}
}

func TestAskEndToEnd(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2018: {unit("a", 2018, 0.8, "Beitrag zur Rente 2018")},
			2019: {unit("b", 2019, 0.9, "Beitrag zur Rente 2019")},
			0:    {unit("c", 2019, 0.7, "Übergreifender Beitrag zur Rente")},
		},
	}
	generator := &fakeGenerator{answer: "Antwort [1] [2] [3]\n## Synthesis\nFazit."}
	f := newAskFixture(index, generator)

	result, err := f.usecase.Ask(context.Background(), domain.AskRequest{
		Question: "Wie hat sich die Rentenpolitik der SPD von 2018 bis 2019 verändert?",
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if result.Intent != domain.IntentComplex {
		t.Fatalf("intent = %s, want complex", result.Intent)
	}
	if result.QuestionType != domain.TypeChange {
		t.Fatalf("questionType = %s, want change", result.QuestionType)
	}
	if result.SubQuestionCount < 3 {
		t.Fatalf("expected year-scoped sub-questions plus synthesis, got %d", result.SubQuestionCount)
	}
	if len(result.Evidence) == 0 {
		t.Fatalf("expected merged evidence")
	}
	if result.Answer == "" {
		t.Fatalf("expected an answer")
	}
	if result.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if generator.generateCalls != 1 {
		t.Fatalf("expected exactly one generation call, got %d", generator.generateCalls)
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newAskFixture(&fakeIndex{}, &fakeGenerator{})

	_, err := f.usecase.Ask(context.Background(), domain.AskRequest{Question: "   "})

	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAskNoMaterialFound(t *testing.T) {
	f := newAskFixture(&fakeIndex{failAll: true}, &fakeGenerator{answer: "sollte nie erzeugt werden"})

	_, err := f.usecase.Ask(context.Background(), domain.AskRequest{
		Question: "Wie hat sich die Rentenpolitik 2018 bis 2019 verändert?",
	})

	if !domain.IsKind(err, domain.ErrNoMaterialFound) {
		t.Fatalf("expected NoMaterialFound, got %v", err)
	}
	if f.generator.generateCalls != 0 {
		t.Fatalf("generation must not run without evidence")
	}
}

func TestAskGenerationFailurePropagates(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2019: {unit("a", 2019, 0.9, "Beitrag")},
			0:    {unit("b", 2019, 0.8, "Beitrag zwei")},
		},
	}
	f := newAskFixture(index, &fakeGenerator{generateErr: errors.New("model down")})

	_, err := f.usecase.Ask(context.Background(), domain.AskRequest{
		Question: "Was sagte die SPD 2019 zur Rente?",
	})

	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestAskRecordsRunAudit(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2019: {unit("a", 2019, 0.9, "Beitrag")},
			0:    {unit("b", 2019, 0.8, "Beitrag zwei")},
		},
	}
	f := newAskFixture(index, &fakeGenerator{answer: "Antwort [1] [2]"})

	result, err := f.usecase.Ask(context.Background(), domain.AskRequest{
		Question: "Was sagte die SPD 2019 zur Rente?",
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(f.runs.runs) != 1 {
		t.Fatalf("expected one audit row, got %d", len(f.runs.runs))
	}
	run := f.runs.runs[0]
	if run.ID != result.RunID {
		t.Fatalf("audit row id %q does not match result %q", run.ID, result.RunID)
	}
	if run.Outcome != "ok" {
		t.Fatalf("outcome = %q, want ok", run.Outcome)
	}
	if run.EvidenceCount != len(result.Evidence) {
		t.Fatalf("audit evidence count = %d, want %d", run.EvidenceCount, len(result.Evidence))
	}
}

func TestAskHonorsRequestTopK(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2019: {
				unit("a", 2019, 0.9, "Beitrag zur Rente und zum Haushalt"),
				unit("b", 2019, 0.8, "Debatte über den Mindestlohn im Plenum"),
			},
			0: {unit("c", 2019, 0.7, "Grundsatzrede zur Sozialpolitik")},
		},
	}
	f := newAskFixture(index, &fakeGenerator{answer: "Antwort [1]"})

	result, err := f.usecase.Ask(context.Background(), domain.AskRequest{
		Question: "Was sagte die SPD 2019 zur Rente?",
		TopK:     1,
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(result.Evidence) != 1 {
		t.Fatalf("evidence = %d units, want 1", len(result.Evidence))
	}
	if result.Evidence[0].ID != "a" {
		t.Fatalf("evidence id = %q, want the highest-scored unit a", result.Evidence[0].ID)
	}
}

func TestAskRequestTopKCannotExceedConfiguredCap(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2019: {
				unit("a", 2019, 0.9, "Beitrag zur Rente und zum Haushalt"),
				unit("b", 2019, 0.8, "Debatte über den Mindestlohn im Plenum"),
				unit("c", 2019, 0.7, "Grundsatzrede zur Sozialpolitik"),
			},
		},
	}
	classifier := &fakeClassifier{verdict: domain.ClassifierVerdict{Intent: domain.IntentComplex}}
	generator := &fakeGenerator{answer: "Antwort [1] [2]"}
	logger := testLogger()
	uc := NewAskUseCase(AskDeps{
		Analyzer:  NewQuestionAnalyzer(classifier, logger).WithClock(fixedClock),
		Decompose: NewDecomposer(generator, 0, logger),
		Expander:  NewQueryExpander(),
		Gate:      NewRelevanceGate(taxonomy.NewStore(testGraph()), GateConfig{}),
		Retriever: newTestRetriever(index),
		Verifier:  NewCoverageVerifier(nil, 2, nil, logger),
		Generator: generator,
		Service:   "test",
		TopK:      2,
		Logger:    logger,
	}).WithClock(fixedClock)

	result, err := uc.Ask(context.Background(), domain.AskRequest{
		Question: "Was sagte die SPD 2019 zur Rente?",
		TopK:     10,
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(result.Evidence) != 2 {
		t.Fatalf("evidence = %d units, want the configured cap of 2", len(result.Evidence))
	}
}

func TestAskHonorsOrganizationFilter(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2019: {unit("a", 2019, 0.9, "Beitrag")},
			0:    {unit("b", 2019, 0.8, "Beitrag zwei")},
		},
	}
	f := newAskFixture(index, &fakeGenerator{answer: "Antwort [1] [2]"})

	_, err := f.usecase.Ask(context.Background(), domain.AskRequest{
		Question:     "Was wurde 2019 zur Rente gesagt?",
		Organization: "FDP",
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	for _, call := range f.index.calls {
		if call.Organization != "FDP" {
			t.Fatalf("search filter organization = %q, want FDP", call.Organization)
		}
	}
}
