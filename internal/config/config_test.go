package config

import (
	"testing"
	"time"
)

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("DECOMPOSITION_CAP", "")
	t.Setenv("EXPANSION_SCORE_THRESHOLD", "")
	t.Setenv("RETRIEVAL_TOP_K", "")
	t.Setenv("MERGE_FINGERPRINT_LEN", "")
	t.Setenv("COVERAGE_REGENERATION_CAP", "")
	t.Setenv("ASK_TIMEOUT", "")

	cfg := Load()
	if cfg.DecompositionCap != 15 {
		t.Fatalf("expected default decomposition cap 15, got %d", cfg.DecompositionCap)
	}
	if cfg.ExpansionScoreThreshold != 5 {
		t.Fatalf("expected default expansion threshold 5, got %d", cfg.ExpansionScoreThreshold)
	}
	if cfg.RetrievalTopK != 50 {
		t.Fatalf("expected default retrieval top k 50, got %d", cfg.RetrievalTopK)
	}
	if cfg.MergeFingerprintLen != 96 {
		t.Fatalf("expected default fingerprint length 96, got %d", cfg.MergeFingerprintLen)
	}
	if cfg.CoverageRegenerationCap != 2 {
		t.Fatalf("expected default regeneration cap 2, got %d", cfg.CoverageRegenerationCap)
	}
	if cfg.AskTimeout != 120*time.Second {
		t.Fatalf("expected default ask timeout 120s, got %s", cfg.AskTimeout)
	}
}

func TestLoadParsesPipelineOverrides(t *testing.T) {
	t.Setenv("DECOMPOSITION_CAP", "8")
	t.Setenv("RETRIEVAL_WORKER_CAP", "4")
	t.Setenv("PARTITION_RETRY_BACKOFF", "500ms")
	t.Setenv("SEARCH_RATE_PER_SECOND", "10.5")
	t.Setenv("ASK_TIMEOUT", "45s")

	cfg := Load()
	if cfg.DecompositionCap != 8 {
		t.Fatalf("expected decomposition cap 8, got %d", cfg.DecompositionCap)
	}
	if cfg.RetrievalWorkerCap != 4 {
		t.Fatalf("expected worker cap 4, got %d", cfg.RetrievalWorkerCap)
	}
	if cfg.PartitionRetryBackoff != 500*time.Millisecond {
		t.Fatalf("expected retry backoff 500ms, got %s", cfg.PartitionRetryBackoff)
	}
	if cfg.SearchRatePerSecond != 10.5 {
		t.Fatalf("expected search rate 10.5, got %v", cfg.SearchRatePerSecond)
	}
	if cfg.AskTimeout != 45*time.Second {
		t.Fatalf("expected ask timeout 45s, got %s", cfg.AskTimeout)
	}
}

func TestLoadFallsBackOnUnparseableValues(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "many")
	t.Setenv("ASK_TIMEOUT", "soon")
	t.Setenv("SEARCH_RATE_PER_SECOND", "fast")

	cfg := Load()
	if cfg.RetrievalTopK != 50 {
		t.Fatalf("expected fallback top k 50, got %d", cfg.RetrievalTopK)
	}
	if cfg.AskTimeout != 120*time.Second {
		t.Fatalf("expected fallback ask timeout 120s, got %s", cfg.AskTimeout)
	}
	if cfg.SearchRatePerSecond != 25 {
		t.Fatalf("expected fallback search rate 25, got %v", cfg.SearchRatePerSecond)
	}
}
