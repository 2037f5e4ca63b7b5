package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClassifier struct {
	verdict domain.ClassifierVerdict
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (domain.ClassifierVerdict, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeGenerator struct {
	answer      string
	jsonAnswer  string
	regenerated []string

	generateErr   error
	regenErr      error
	corrections   []domain.CorrectionPayload
	generateCalls int
	regenCalls    int
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, _ string, _ []domain.EvidenceUnit) (string, error) {
	f.generateCalls++
	return f.answer, f.generateErr
}

func (f *fakeGenerator) GenerateFromPrompt(_ context.Context, _ string) (string, error) {
	return f.answer, f.generateErr
}

func (f *fakeGenerator) GenerateJSONFromPrompt(_ context.Context, _ string) (string, error) {
	return f.jsonAnswer, f.generateErr
}

func (f *fakeGenerator) RegenerateAnswer(_ context.Context, _ string, _ []domain.EvidenceUnit, previous string, correction domain.CorrectionPayload) (string, error) {
	f.corrections = append(f.corrections, correction)
	f.regenCalls++
	if f.regenErr != nil {
		return "", f.regenErr
	}
	if f.regenCalls <= len(f.regenerated) {
		return f.regenerated[f.regenCalls-1], nil
	}
	return previous, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

// fakeIndex answers from a by-year table and optionally fails whole years.
type fakeIndex struct {
	mu       sync.Mutex
	byYear   map[int][]domain.EvidenceUnit
	failYear map[int]bool
	failAll  bool
	calls    []domain.SearchFilter
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, filter domain.SearchFilter, _ int) ([]domain.EvidenceUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filter)
	if f.failAll || f.failYear[filter.Year] {
		return nil, fmt.Errorf("index unavailable for year %d", filter.Year)
	}
	hits := f.byYear[filter.Year]
	out := make([]domain.EvidenceUnit, len(hits))
	copy(out, hits)
	return out, nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs []*domain.AskRun
}

func (f *fakeRuns) CreateRun(_ context.Context, run *domain.AskRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func unit(id string, year int, score float64, text string) domain.EvidenceUnit {
	return domain.EvidenceUnit{
		ID:           id,
		Text:         text,
		Score:        score,
		Year:         year,
		Organization: "SPD",
		Source:       "plenarprotokoll",
	}
}
