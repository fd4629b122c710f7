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

// otpRepository implements the domain.OTPRepository interface.
type otpRepository struct {
	baseRepository
}

// NewOTPRepository is the constructor for otpRepository.
func NewOTPRepository(db *gorm.DB, cfg *config.Config) repository.OTPRepository {
	return newOTPRepository(db, cfg.Upstream.StoreTimeout)
}

func newOTPRepository(db *gorm.DB, timeout time.Duration) *otpRepository {
	return &otpRepository{baseRepository: newBaseRepository(db, timeout)}
}

func (repo *otpRepository) Create(ctx context.Context, record *entity.OTPRecord) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	otpM := fromOTPDomain(record)
	if err := db.Create(otpM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create otp record")
	}

	record.ID = otpM.ID
	record.CreatedAt = otpM.CreatedAt

	return nil
}

func (repo *otpRepository) FindLatestActive(ctx context.Context, userID uuid.UUID, email string, now time.Time) (*entity.OTPRecord, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var otpM model.OTPModel
	err := db.Where("user_id = ? AND email = ? AND verified = ? AND expires_at > ?", userID, email, false, now).
		Order("created_at DESC").
		First(&otpM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOTPNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find otp record")
	}

	return toOTPDomain(&otpM), nil
}

func (repo *otpRepository) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.OTPModel{}).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to mark otp verified")
	}

	return result.RowsAffected > 0, nil
}

func (repo *otpRepository) DeleteByUserAndEmail(ctx context.Context, userID uuid.UUID, email string) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	err := db.Where("user_id = ? AND email = ?", userID, email).
		Delete(&model.OTPModel{}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete otp records")
	}

	return nil
}

func toOTPDomain(data *model.OTPModel) *entity.OTPRecord {
	return &entity.OTPRecord{
		ID:        data.ID,
		UserID:    data.UserID,
		Email:     data.Email,
		OTPHash:   data.OTPHash,
		ExpiresAt: data.ExpiresAt,
		Verified:  data.Verified,
		CreatedAt: data.CreatedAt,
	}
}

func fromOTPDomain(data *entity.OTPRecord) *model.OTPModel {
	return &model.OTPModel{
		ID:        data.ID,
		UserID:    data.UserID,
		Email:     data.Email,
		OTPHash:   data.OTPHash,
		ExpiresAt: data.ExpiresAt,
		Verified:  data.Verified,
		CreatedAt: data.CreatedAt,
	}
}
