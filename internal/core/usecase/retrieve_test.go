package usecase

import (
	"context"
	"testing"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

func newTestRetriever(index *fakeIndex) *StratifiedRetriever {
	return NewStratifiedRetriever(
		&fakeEmbedder{},
		index,
		nil,
		nil,
		nil,
		RetrieverConfig{},
		"test",
		testLogger(),
	)
}

func verbatim(text string) []domain.QueryVariant {
	return []domain.QueryVariant{{Text: text, Strategy: domain.VariantVerbatim}}
}

func TestRetrieveSingleYearScopesEveryHit(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2019: {
				unit("a", 2019, 0.9, "Rede eins"),
				unit("b", 2019, 0.8, "Rede zwei"),
			},
		},
	}
	r := newTestRetriever(index)

	sub := domain.SubQuestion{
		Text:       "Position der SPD zur Rente 2019",
		TargetYear: 2019,
		Strategy:   domain.StrategySingleYear,
	}
	res, err := r.Retrieve(context.Background(), sub, verbatim(sub.Text), nil, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(res.Evidence) != 2 {
		t.Fatalf("expected 2 units, got %d", len(res.Evidence))
	}
	for _, u := range res.Evidence {
		if u.Year != 2019 {
			t.Fatalf("single_year result contains year %d, want 2019", u.Year)
		}
	}
	for _, call := range index.calls {
		if call.Year != 2019 {
			t.Fatalf("search filter year = %d, want 2019", call.Year)
		}
	}
}

func TestRetrieveSingleYearInheritsTargetOrg(t *testing.T) {
	index := &fakeIndex{byYear: map[int][]domain.EvidenceUnit{2019: {unit("a", 2019, 0.9, "Rede")}}}
	r := newTestRetriever(index)

	sub := domain.SubQuestion{
		Text:       "Positionen der SPD 2019",
		TargetYear: 2019,
		TargetOrg:  "SPD",
		Strategy:   domain.StrategySingleYear,
	}
	if _, err := r.Retrieve(context.Background(), sub, verbatim(sub.Text), nil, domain.SearchFilter{}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if index.calls[0].Organization != "SPD" {
		t.Fatalf("filter organization = %q, want SPD", index.calls[0].Organization)
	}
}

func TestRetrieveMultiYearZeroFillsFailedPartitions(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2018: {unit("a", 2018, 0.7, "Beitrag 2018")},
			2020: {unit("b", 2020, 0.8, "Beitrag 2020")},
		},
		failYear: map[int]bool{2019: true},
	}
	r := newTestRetriever(index)

	sub := domain.SubQuestion{Text: "Entwicklung der Rente", Strategy: domain.StrategyMultiYear}
	res, err := r.Retrieve(context.Background(), sub, verbatim(sub.Text), []int{2018, 2019, 2020}, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("a single failed partition must not fail the batch: %v", err)
	}

	if len(res.Evidence) != 2 {
		t.Fatalf("expected evidence from the 2 healthy partitions, got %d", len(res.Evidence))
	}
	if res.YearHistogram[2019] != 0 {
		t.Fatalf("failed partition must be zero-filled, histogram = %v", res.YearHistogram)
	}
}

func TestRetrieveMultiYearAllPartitionsFailed(t *testing.T) {
	index := &fakeIndex{failAll: true}
	r := newTestRetriever(index)

	sub := domain.SubQuestion{Text: "Entwicklung der Rente", Strategy: domain.StrategyMultiYear}
	_, err := r.Retrieve(context.Background(), sub, verbatim(sub.Text), []int{2018, 2019}, domain.SearchFilter{})

	if !domain.IsKind(err, domain.ErrNoMaterialFound) {
		t.Fatalf("all partitions failing must surface NoMaterialFound, got %v", err)
	}
}

func TestRetrieveMultiYearOnePartitionPerYearAndVariant(t *testing.T) {
	index := &fakeIndex{byYear: map[int][]domain.EvidenceUnit{}}
	r := newTestRetriever(index)

	variants := []domain.QueryVariant{
		{Text: "Rente sichern", Strategy: domain.VariantVerbatim},
		{Text: "Rentenpolitik", Strategy: domain.VariantKeywordExtracted},
	}
	sub := domain.SubQuestion{Text: "Entwicklung der Rente", Strategy: domain.StrategyMultiYear}
	if _, err := r.Retrieve(context.Background(), sub, variants, []int{2018, 2019, 2020}, domain.SearchFilter{}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(index.calls) != 6 {
		t.Fatalf("expected 3 years x 2 variants = 6 search calls, got %d", len(index.calls))
	}
}

func TestRetrieveRejectsEmptyVariants(t *testing.T) {
	r := newTestRetriever(&fakeIndex{})

	sub := domain.SubQuestion{Text: "irgendwas", Strategy: domain.StrategyMultiYear}
	_, err := r.Retrieve(context.Background(), sub, nil, nil, domain.SearchFilter{})

	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRetrieverConfigBoundsWorkerCap(t *testing.T) {
	cfg := RetrieverConfig{WorkerCap: 100}.normalized()
	if cfg.WorkerCap != maxRetrievalWorkers {
		t.Fatalf("WorkerCap = %d, want clamp to %d", cfg.WorkerCap, maxRetrievalWorkers)
	}
}

func TestRetrieveCanceledContextStopsFanOut(t *testing.T) {
	index := &fakeIndex{
		byYear: map[int][]domain.EvidenceUnit{
			2018: {unit("a", 2018, 0.9, "Rede 2018")},
			2019: {unit("b", 2019, 0.8, "Rede 2019")},
		},
	}
	r := newTestRetriever(index)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub := domain.SubQuestion{
		Text:     "Entwicklung der Rentenpolitik",
		Strategy: domain.StrategyMultiYear,
	}
	res, err := r.Retrieve(ctx, sub, verbatim(sub.Text), []int{2018, 2019}, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want nil with partial result", err)
	}

	if len(index.calls) != 0 {
		t.Fatalf("canceled context still issued %d search calls", len(index.calls))
	}
	if len(res.Evidence) != 0 {
		t.Fatalf("expected empty pool after immediate cancellation, got %d units", len(res.Evidence))
	}
}
