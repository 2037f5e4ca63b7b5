package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
	"github.com/plenumlab/speechqa/internal/infrastructure/resilience"
	"github.com/plenumlab/speechqa/internal/observability/metrics"
)

const (
	defaultPerCallLimit  = 20
	defaultRetrievalTopK = 50
	maxRetrievalWorkers  = 20
)

type RetrieverConfig struct {
	// PerCallLimit caps hits per individual search call.
	PerCallLimit int
	// TopK caps the merged result passed downstream.
	TopK int
	// WorkerCap bounds the multi-year fan-out; effective bound is
	// min(partitions, WorkerCap, 20).
	WorkerCap int
	// FingerprintLen is the near-duplicate prefix length.
	FingerprintLen int
}

func (c RetrieverConfig) normalized() RetrieverConfig {
	if c.PerCallLimit <= 0 {
		c.PerCallLimit = defaultPerCallLimit
	}
	if c.TopK <= 0 {
		c.TopK = defaultRetrievalTopK
	}
	if c.WorkerCap <= 0 || c.WorkerCap > maxRetrievalWorkers {
		c.WorkerCap = maxRetrievalWorkers
	}
	if c.FingerprintLen <= 0 {
		c.FingerprintLen = defaultFingerprintLen
	}
	return c
}

// StratifiedRetriever issues one search call per partition and variant and
// merges the results, so wide time spans stay covered instead of letting
// top-k be dominated by one period.
type StratifiedRetriever struct {
	embedder ports.Embedder
	index    ports.SearchIndex
	executor *resilience.Executor
	limiter  *rate.Limiter
	metrics  *metrics.PipelineMetrics
	cfg      RetrieverConfig
	service  string
	logger   *slog.Logger
}

func NewStratifiedRetriever(
	embedder ports.Embedder,
	index ports.SearchIndex,
	executor *resilience.Executor,
	limiter *rate.Limiter,
	pipelineMetrics *metrics.PipelineMetrics,
	cfg RetrieverConfig,
	service string,
	logger *slog.Logger,
) *StratifiedRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &StratifiedRetriever{
		embedder: embedder,
		index:    index,
		executor: executor,
		limiter:  limiter,
		metrics:  pipelineMetrics,
		cfg:      cfg.normalized(),
		service:  service,
		logger:   logger,
	}
}

type embeddedVariant struct {
	variant domain.QueryVariant
	vector  []float32
}

// Retrieve runs one sub-question. years supplies the partition list for the
// multi_year path. A zero-evidence result is valid; the only terminal error
// is every partition failing.
func (r *StratifiedRetriever) Retrieve(
	ctx context.Context,
	sub domain.SubQuestion,
	variants []domain.QueryVariant,
	years []int,
	filter domain.SearchFilter,
) (domain.RetrievalResult, error) {
	embedded, err := r.embedVariants(ctx, variants)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed variants: %w", err)
	}
	if len(embedded) == 0 {
		return domain.RetrievalResult{}, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("no query variants"))
	}

	var raw []domain.EvidenceUnit
	method := string(sub.Strategy)

	switch sub.Strategy {
	case domain.StrategySingleYear:
		raw, err = r.retrieveSingleYear(ctx, sub, embedded, filter)
	case domain.StrategyMultiYear:
		raw, err = r.retrieveMultiYear(ctx, embedded, years, filter)
	default:
		return domain.RetrievalResult{}, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("unknown strategy %q", sub.Strategy))
	}
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	evidence := mergeEvidence(raw, r.cfg.TopK, r.cfg.FingerprintLen)
	return domain.RetrievalResult{
		SubQuestion:   sub,
		Evidence:      evidence,
		YearHistogram: yearHistogram(evidence),
		Method:        method,
	}, nil
}

func (r *StratifiedRetriever) embedVariants(ctx context.Context, variants []domain.QueryVariant) ([]embeddedVariant, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	texts := make([]string, len(variants))
	for i, v := range variants {
		texts[i] = v.Text
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(variants) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d variants", len(vectors), len(variants))
	}

	out := make([]embeddedVariant, len(variants))
	for i := range variants {
		out[i] = embeddedVariant{variant: variants[i], vector: vectors[i]}
	}
	return out, nil
}

func (r *StratifiedRetriever) retrieveSingleYear(
	ctx context.Context,
	sub domain.SubQuestion,
	embedded []embeddedVariant,
	filter domain.SearchFilter,
) ([]domain.EvidenceUnit, error) {
	filter.Year = sub.TargetYear
	if sub.TargetOrg != "" && filter.Organization == "" {
		filter.Organization = sub.TargetOrg
	}

	raw := make([]domain.EvidenceUnit, 0, len(embedded)*r.cfg.PerCallLimit)
	failed := 0
	for _, ev := range embedded {
		hits, err := r.searchPartition(ctx, ev.vector, filter)
		if err != nil {
			failed++
			continue
		}
		raw = append(raw, hits...)
	}
	if failed == len(embedded) {
		return nil, domain.WrapError(domain.ErrNoMaterialFound, "single-year retrieval",
			fmt.Errorf("all %d search calls failed for year %d", len(embedded), sub.TargetYear))
	}
	return raw, nil
}

// retrieveMultiYear fans one worker out per (year, variant) pair, bounded by
// the worker cap. A worker that exhausts its retries zero-fills its partition
// instead of failing the batch; only all partitions failing is terminal.
func (r *StratifiedRetriever) retrieveMultiYear(
	ctx context.Context,
	embedded []embeddedVariant,
	years []int,
	filter domain.SearchFilter,
) ([]domain.EvidenceUnit, error) {
	type partition struct {
		year    int
		variant embeddedVariant
	}

	// No explicit partitions: a single unscoped call per variant.
	if len(years) == 0 {
		years = []int{0}
	}

	partitions := make([]partition, 0, len(years)*len(embedded))
	for _, year := range years {
		for _, ev := range embedded {
			partitions = append(partitions, partition{year: year, variant: ev})
		}
	}

	workers := len(years)
	if workers > r.cfg.WorkerCap {
		workers = r.cfg.WorkerCap
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		raw    []domain.EvidenceUnit
		failed int
	)

	group := &errgroup.Group{}
	group.SetLimit(workers)

	for _, p := range partitions {
		// Deadline exceeded: stop spawning workers, keep what succeeded.
		if ctx.Err() != nil {
			break
		}
		p := p
		group.Go(func() error {
			partitionFilter := filter
			partitionFilter.Year = p.year

			hits, err := r.searchPartition(ctx, p.variant.vector, partitionFilter)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				r.logger.Warn("partition_zero_filled",
					"year", p.year,
					"variant", string(p.variant.variant.Strategy),
					"error", err,
				)
				if r.metrics != nil {
					r.metrics.ObservePartition(r.service, "zero_filled")
				}
				return nil
			}
			raw = append(raw, hits...)
			if r.metrics != nil {
				r.metrics.ObservePartition(r.service, "ok")
			}
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes.
	_ = group.Wait()

	if failed == len(partitions) && len(partitions) > 0 {
		return nil, domain.WrapError(domain.ErrNoMaterialFound, "stratified retrieval",
			fmt.Errorf("all %d partitions failed", len(partitions)))
	}
	return raw, nil
}

func (r *StratifiedRetriever) searchPartition(ctx context.Context, vector []float32, filter domain.SearchFilter) ([]domain.EvidenceUnit, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var hits []domain.EvidenceUnit
	call := func(callCtx context.Context) error {
		found, err := r.index.Search(callCtx, vector, filter, r.cfg.PerCallLimit)
		if err != nil {
			return err
		}
		hits = found
		return nil
	}

	if r.executor == nil {
		if err := call(ctx); err != nil {
			return nil, err
		}
		return hits, nil
	}
	if err := r.executor.Execute(ctx, "search.partition", call, resilience.TransientClassifier); err != nil {
		return nil, err
	}
	return hits, nil
}
