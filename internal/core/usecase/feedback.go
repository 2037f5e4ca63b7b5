package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/plenumlab/speechqa/internal/core/domain"
	"github.com/plenumlab/speechqa/internal/core/ports"
	"github.com/plenumlab/speechqa/internal/taxonomy"
)

const feedbackWeightStep = 0.1

// FeedbackUseCase turns tag feedback into weight adjustments. Adjustments go
// through the store's serialized writer and are persisted best effort.
type FeedbackUseCase struct {
	store      *taxonomy.Store
	repository ports.TaxonomyRepository
	logger     *slog.Logger
}

func NewFeedbackUseCase(store *taxonomy.Store, repository ports.TaxonomyRepository, logger *slog.Logger) *FeedbackUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackUseCase{store: store, repository: repository, logger: logger}
}

func (u *FeedbackUseCase) ApplyTagFeedback(ctx context.Context, feedback domain.TagFeedback) error {
	tagID := strings.TrimSpace(feedback.TagID)
	if tagID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "apply tag feedback", fmt.Errorf("empty tag id"))
	}

	delta := feedbackWeightStep
	if !feedback.Helpful {
		delta = -feedbackWeightStep
	}

	weight, err := u.store.AdjustWeight(tagID, delta)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "apply tag feedback", err)
	}
	u.logger.Info("tag_weight_adjusted", "tag_id", tagID, "delta", delta, "weight", weight)

	if u.repository != nil {
		graph := u.store.Snapshot()
		if err := u.repository.Persist(ctx, &graph); err != nil {
			// The in-memory weight already moved; persistence catches up on
			// the next successful write.
			u.logger.Warn("taxonomy_persist_failed", "tag_id", tagID, "error", err)
		}
	}
	return nil
}
