package postgres

import (
	"context"
	"time"

	"fintrack/config"
	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/errors"
	"fintrack/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the domain.SubscriptionRepository interface.
type subscriptionRepository struct {
	baseRepository
}

// NewSubscriptionRepository is the constructor for subscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB, cfg *config.Config) repository.SubscriptionRepository {
	return newSubscriptionRepository(db, cfg.Upstream.StoreTimeout)
}

func newSubscriptionRepository(db *gorm.DB, timeout time.Duration) *subscriptionRepository {
	return &subscriptionRepository{baseRepository: newBaseRepository(db, timeout)}
}

// Upsert creates or replaces the subscription keyed by user_id. RETURNING
// hands back the id of whichever row now holds the entitlement.
func (repo *subscriptionRepository) Upsert(ctx context.Context, subscription *entity.Subscription) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	subM := fromSubscriptionDomain(subscription)
	if subM.ID == uuid.Nil {
		subM.ID = uuid.New()
	}

	err := db.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "expires_at", "updated_at"}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "created_at"}}},
	).Create(subM).Error
	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert subscription")
	}

	subscription.ID = subM.ID
	subscription.CreatedAt = subM.CreatedAt
	subscription.UpdatedAt = subM.UpdatedAt

	return nil
}

func (repo *subscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var subM model.SubscriptionModel
	if err := db.Where("user_id = ?", userID).First(&subM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSubscriptionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find subscription")
	}

	return toSubscriptionDomain(&subM), nil
}

func (repo *subscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.SubscriptionModel{}).
		Where("status = ? AND expires_at <= ?", string(entity.SubscriptionStatusActive), now).
		Updates(map[string]any{
			"status":     string(entity.SubscriptionStatusExpired),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to expire subscriptions")
	}

	return int(result.RowsAffected), nil
}

func toSubscriptionDomain(data *model.SubscriptionModel) *entity.Subscription {
	return &entity.Subscription{
		ID:        data.ID,
		UserID:    data.UserID,
		Plan:      data.Plan,
		Status:    entity.SubscriptionStatus(data.Status),
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func fromSubscriptionDomain(data *entity.Subscription) *model.SubscriptionModel {
	return &model.SubscriptionModel{
		ID:        data.ID,
		UserID:    data.UserID,
		Plan:      data.Plan,
		Status:    string(data.Status),
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
