package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/plenumlab/speechqa/internal/config"
	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
	"github.com/plenumlab/speechqa/internal/core/usecase"
	"github.com/plenumlab/speechqa/internal/infrastructure/llm/ollama"
	natsqueue "github.com/plenumlab/speechqa/internal/infrastructure/queue/nats"
	neo4jrepo "github.com/plenumlab/speechqa/internal/infrastructure/repository/neo4j"
	"github.com/plenumlab/speechqa/internal/infrastructure/repository/postgres"
	"github.com/plenumlab/speechqa/internal/infrastructure/resilience"
	"github.com/plenumlab/speechqa/internal/infrastructure/vector/qdrant"
	"github.com/plenumlab/speechqa/internal/observability/metrics"
	"github.com/plenumlab/speechqa/internal/taxonomy"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Metrics     *metrics.PipelineMetrics
	HTTPMetrics *metrics.HTTPMetrics

	AskUC      ports.QuestionAnswerer
	FeedbackUC ports.FeedbackApplier
	Queue      ports.FeedbackQueue

	closeFn func()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pipelineMetrics := metrics.NewPipelineMetrics(service)
	httpMetrics := metrics.NewHTTPMetrics(pipelineMetrics, service)
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.PartitionRetryAttempts,
		RetryInitialBackoff: cfg.PartitionRetryBackoff,
		BreakerEnabled:      true,
	})

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	runs := postgres.NewRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	driver, err := neo4jrepo.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	taxonomyRepo := neo4jrepo.NewTaxonomyRepository(driver, cfg.Neo4jDatabase)

	store, requiredDetails, err := loadTaxonomy(ctx, cfg, taxonomyRepo, logger)
	if err != nil {
		_ = driver.Close(ctx)
		_ = db.Close()
		return nil, err
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = driver.Close(ctx)
		_ = db.Close()
		return nil, fmt.Errorf("init feedback queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	classifier := ollama.NewClassifier(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	burst := cfg.RetrievalWorkerCap
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.SearchRatePerSecond), burst)

	analyzer := usecase.NewQuestionAnalyzer(classifier, logger)
	decomposer := usecase.NewDecomposer(generator, cfg.DecompositionCap, logger)
	expander := usecase.NewQueryExpander()
	gate := usecase.NewRelevanceGate(store, usecase.GateConfig{
		ExpansionThreshold: cfg.ExpansionScoreThreshold,
		TagCap:             cfg.ExpansionTagCap,
		QueryCap:           cfg.ExpansionQueryCap,
	})
	retriever := usecase.NewStratifiedRetriever(
		embedder, index, executor, limiter, pipelineMetrics,
		usecase.RetrieverConfig{
			PerCallLimit:   cfg.RetrievalPerCallLimit,
			TopK:           cfg.RetrievalTopK,
			WorkerCap:      cfg.RetrievalWorkerCap,
			FingerprintLen: cfg.MergeFingerprintLen,
		},
		service, logger,
	)
	verifier := usecase.NewCoverageVerifier(requiredDetails, cfg.CoverageRegenerationCap, pipelineMetrics, logger)

	askUC := usecase.NewAskUseCase(usecase.AskDeps{
		Analyzer:  analyzer,
		Decompose: decomposer,
		Expander:  expander,
		Gate:      gate,
		Retriever: retriever,
		Verifier:  verifier,
		Generator: generator,
		Runs:      runs,
		Metrics:   pipelineMetrics,
		Service:   service,
		Timeout:   cfg.AskTimeout,
		TopK:      cfg.RetrievalTopK,
		Logger:    logger,
	})
	feedbackUC := usecase.NewFeedbackUseCase(store, taxonomyRepo, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     pipelineMetrics,
		HTTPMetrics: httpMetrics,
		AskUC:       askUC,
		FeedbackUC:  feedbackUC,
		Queue:       queue,

		closeFn: func() {
			queue.Close()
			_ = driver.Close(context.Background())
			_ = db.Close()
		},
	}, nil
}

// loadTaxonomy prefers the persisted graph and falls back to the YAML seed,
// persisting the seed so the next start finds it in the repository.
func loadTaxonomy(
	ctx context.Context,
	cfg config.Config,
	repo ports.TaxonomyRepository,
	logger *slog.Logger,
) (*taxonomy.Store, []string, error) {
	seed, seedErr := taxonomy.LoadSeed(cfg.TaxonomySeedPath)

	var graph *domain.TaxonomyGraph
	loaded, err := repo.Load(ctx)
	if err != nil {
		logger.Warn("taxonomy_load_failed", "error", err)
	} else if loaded != nil && (len(loaded.Topics) > 0 || len(loaded.Dimensions) > 0) {
		graph = loaded
	}

	if graph == nil {
		if seedErr != nil {
			return nil, nil, fmt.Errorf("no stored taxonomy and seed unavailable: %w", seedErr)
		}
		graph = seed.Graph()
		if err := repo.Persist(ctx, graph); err != nil {
			logger.Warn("taxonomy_seed_persist_failed", "error", err)
		} else {
			logger.Info("taxonomy_seeded", "path", cfg.TaxonomySeedPath)
		}
	}

	var requiredDetails []string
	if seedErr == nil {
		requiredDetails = seed.RequiredDetails
	}
	return taxonomy.NewStore(graph), requiredDetails, nil
}
