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
)

// paymentRepository implements the domain.PaymentRepository interface.
type paymentRepository struct {
	baseRepository
}

// NewPaymentRepository is the constructor for paymentRepository.
func NewPaymentRepository(db *gorm.DB, cfg *config.Config) repository.PaymentRepository {
	return newPaymentRepository(db, cfg.Upstream.StoreTimeout)
}

func newPaymentRepository(db *gorm.DB, timeout time.Duration) *paymentRepository {
	return &paymentRepository{baseRepository: newBaseRepository(db, timeout)}
}

func (repo *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	paymentM := fromPaymentDomain(payment)
	if err := db.Create(paymentM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrPaymentAlreadyExists
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create payment")
	}

	payment.ID = paymentM.ID
	payment.CreatedAt = paymentM.CreatedAt
	payment.UpdatedAt = paymentM.UpdatedAt

	return nil
}

func (repo *paymentRepository) FindByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var paymentM model.PaymentModel
	if err := db.Where("provider_order_id = ?", orderID).First(&paymentM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPaymentNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find payment by order id")
	}

	return toPaymentDomain(&paymentM), nil
}

func (repo *paymentRepository) MarkCompleted(ctx context.Context, settlement *entity.Settlement) (bool, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.PaymentModel{}).
		Where("id = ? AND status = ?", settlement.PaymentID, string(entity.PaymentStatusPending)).
		Updates(map[string]any{
			"status":              string(entity.PaymentStatusCompleted),
			"provider_payment_id": settlement.ProviderPaymentID,
			"subscription_id":     settlement.SubscriptionID,
			"paid_at":             settlement.PaidAt,
			"failure_reason":      "",
		})
	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return false, repository.ErrPaymentAlreadyExists
		}

		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to mark payment completed")
	}

	return result.RowsAffected > 0, nil
}

func (repo *paymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.PaymentModel{}).
		Where("id = ? AND status = ?", id, string(entity.PaymentStatusPending)).
		Updates(map[string]any{
			"status":         string(entity.PaymentStatusFailed),
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to mark payment failed")
	}

	return result.RowsAffected > 0, nil
}

func toPaymentDomain(data *model.PaymentModel) *entity.Payment {
	return &entity.Payment{
		ID:                data.ID,
		UserID:            data.UserID,
		Plan:              data.Plan,
		Provider:          data.Provider,
		Amount:            data.Amount,
		Currency:          data.Currency,
		ProviderOrderID:   data.ProviderOrderID,
		ProviderPaymentID: data.ProviderPaymentID,
		Status:            entity.PaymentStatus(data.Status),
		FailureReason:     data.FailureReason,
		SubscriptionID:    data.SubscriptionID,
		PaidAt:            data.PaidAt,
		CreatedAt:         data.CreatedAt,
		UpdatedAt:         data.UpdatedAt,
	}
}

func fromPaymentDomain(data *entity.Payment) *model.PaymentModel {
	return &model.PaymentModel{
		ID:                data.ID,
		UserID:            data.UserID,
		Plan:              data.Plan,
		Provider:          data.Provider,
		Amount:            data.Amount,
		Currency:          data.Currency,
		ProviderOrderID:   data.ProviderOrderID,
		ProviderPaymentID: data.ProviderPaymentID,
		Status:            string(data.Status),
		FailureReason:     data.FailureReason,
		SubscriptionID:    data.SubscriptionID,
		PaidAt:            data.PaidAt,
		CreatedAt:         data.CreatedAt,
		UpdatedAt:         data.UpdatedAt,
	}
}
