package ports

import (
	"context"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the full ask pipeline.
type QuestionAnswerer interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResult, error)
}

// FeedbackApplier applies one tag-feedback signal to the taxonomy weights.
type FeedbackApplier interface {
	ApplyTagFeedback(ctx context.Context, feedback domain.TagFeedback) error
}
