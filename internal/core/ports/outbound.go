package ports

import (
	"context"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// Embedder builds vectors for query variants.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchIndex is the external vector index over the speech corpus.
// Hits come back ranked by score descending.
type SearchIndex interface {
	Search(ctx context.Context, vector []float32, filter domain.SearchFilter, topK int) ([]domain.EvidenceUnit, error)
}

// IntentClassifier produces a structured verdict for a raw question.
// Callers fail open to complex intent when it errors.
type IntentClassifier interface {
	Classify(ctx context.Context, question string) (domain.ClassifierVerdict, error)
}

// AnswerGenerator creates and corrects the user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, evidence []domain.EvidenceUnit) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
	RegenerateAnswer(ctx context.Context, question string, evidence []domain.EvidenceUnit, previous string, correction domain.CorrectionPayload) (string, error)
}

// TaxonomyRepository loads and persists the concept graph.
type TaxonomyRepository interface {
	Load(ctx context.Context) (*domain.TaxonomyGraph, error)
	Persist(ctx context.Context, graph *domain.TaxonomyGraph) error
}

// RunRepository records pipeline runs for observability.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.AskRun) error
}

// FeedbackQueue transports tag feedback from the API to the weight-update worker.
type FeedbackQueue interface {
	PublishTagFeedback(ctx context.Context, feedback domain.TagFeedback) error
	SubscribeTagFeedback(ctx context.Context, handler func(context.Context, domain.TagFeedback) error) error
}
