package taxonomy

import (
	"sync"
	"testing"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

func testGraph() *domain.TaxonomyGraph {
	return &domain.TaxonomyGraph{
		Topics: []domain.TaxonomyTopic{
			{ID: "topic-climate", Name: "Klimapolitik", Keywords: []string{"klimaschutz"}, Dimensions: []string{"dim-energy"}},
		},
		Dimensions: []domain.TaxonomyDimension{
			{
				ID:   "dim-energy",
				Name: "Energiewende",
				Tags: []domain.TaxonomyTag{
					{ID: "tag-coal", Name: "Kohleausstieg", Keywords: []string{"kohleausstieg"}, Weight: 1.0},
				},
			},
		},
	}
}

func TestStoreAdjustWeightClamps(t *testing.T) {
	store := NewStore(testGraph())

	weight, err := store.AdjustWeight("tag-coal", 10)
	if err != nil {
		t.Fatalf("AdjustWeight() error = %v", err)
	}
	if weight != domain.MaxTagWeight {
		t.Fatalf("expected clamp to %.1f, got %.2f", domain.MaxTagWeight, weight)
	}

	weight, err = store.AdjustWeight("tag-coal", -10)
	if err != nil {
		t.Fatalf("AdjustWeight() error = %v", err)
	}
	if weight != domain.MinTagWeight {
		t.Fatalf("expected clamp to %.1f, got %.2f", domain.MinTagWeight, weight)
	}
}

func TestStoreAdjustWeightUnknownTag(t *testing.T) {
	store := NewStore(testGraph())
	if _, err := store.AdjustWeight("tag-missing", 0.1); err == nil {
		t.Fatalf("expected error for unknown tag")
	}
}

func TestStoreSnapshotIsolatedFromWrites(t *testing.T) {
	store := NewStore(testGraph())
	snapshot := store.Snapshot()

	if _, err := store.AdjustWeight("tag-coal", 0.5); err != nil {
		t.Fatalf("AdjustWeight() error = %v", err)
	}
	if got := snapshot.Dimensions[0].Tags[0].Weight; got != 1.0 {
		t.Fatalf("snapshot mutated by later write: weight=%.2f", got)
	}
}

func TestStoreConcurrentWritesSerialized(t *testing.T) {
	store := NewStore(testGraph())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AdjustWeight("tag-coal", 0.01)
		}()
	}
	wg.Wait()

	got := store.Snapshot().Dimensions[0].Tags[0].Weight
	want := 1.0 + 50*0.01
	if got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("lost update under concurrency: weight=%.4f want=%.4f", got, want)
	}
}

func TestStoreDefaultsZeroWeightToNeutral(t *testing.T) {
	graph := testGraph()
	graph.Dimensions[0].Tags[0].Weight = 0
	store := NewStore(graph)

	if got := store.Snapshot().Dimensions[0].Tags[0].Weight; got != 1.0 {
		t.Fatalf("expected neutral default weight 1.0, got %.2f", got)
	}
}
