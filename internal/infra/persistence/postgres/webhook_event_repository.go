package postgres

import (
	"context"
	"time"

	"fintrack/config"
	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// webhookEventRepository implements the domain.WebhookEventRepository interface.
type webhookEventRepository struct {
	baseRepository
}

// NewWebhookEventRepository is the constructor for webhookEventRepository.
func NewWebhookEventRepository(db *gorm.DB, cfg *config.Config) repository.WebhookEventRepository {
	return newWebhookEventRepository(db, cfg.Upstream.StoreTimeout)
}

func newWebhookEventRepository(db *gorm.DB, timeout time.Duration) *webhookEventRepository {
	return &webhookEventRepository{baseRepository: newBaseRepository(db, timeout)}
}

func (repo *webhookEventRepository) Record(ctx context.Context, event *entity.WebhookEvent) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	eventM := &model.WebhookEventModel{
		ID:              event.ID,
		Provider:        event.Provider,
		EventID:         event.EventID,
		EventType:       event.EventType,
		ProviderOrderID: event.ProviderOrderID,
		CreatedAt:       event.CreatedAt,
	}
	if err := db.Create(eventM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrWebhookEventDuplicate
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to record webhook event")
	}

	event.ID = eventM.ID
	event.CreatedAt = eventM.CreatedAt

	return nil
}

func (repo *webhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	err := db.Model(&model.WebhookEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed_at":     time.Now(),
			"processing_error": processingError,
		}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to mark webhook event processed")
	}

	return nil
}
