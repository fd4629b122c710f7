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

const activeSessionClause = "user_id = ? AND is_revoked = ? AND expire_at > ?"

// sessionRepository implements the domain.SessionRepository interface.
type sessionRepository struct {
	baseRepository
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB, cfg *config.Config) repository.SessionRepository {
	return newSessionRepository(db, cfg.Upstream.StoreTimeout)
}

func newSessionRepository(db *gorm.DB, timeout time.Duration) *sessionRepository {
	return &sessionRepository{baseRepository: newBaseRepository(db, timeout)}
}

func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	sessionM := fromSessionDomain(session)
	if err := db.Create(sessionM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("refresh token already bound to a session")
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	session.ID = sessionM.ID
	session.CreatedAt = sessionM.CreatedAt

	return nil
}

func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var sessionM model.SessionModel
	if err := db.Where("id = ?", id).First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find session by id")
	}

	return toSessionDomain(&sessionM), nil
}

func (repo *sessionRepository) FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*entity.Session, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var sessionM model.SessionModel
	err := db.Where("refresh_token_hash = ? AND is_revoked = ? AND expire_at > ?", tokenHash, false, now).
		First(&sessionM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find session by hash")
	}

	return toSessionDomain(&sessionM), nil
}

func (repo *sessionRepository) CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var count int64
	err := db.Model(&model.SessionModel{}).
		Where(activeSessionClause, userID, false, now).
		Count(&count).Error
	if err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to count active sessions")
	}

	return int(count), nil
}

func (repo *sessionRepository) FindOldestActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (*entity.Session, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var sessionM model.SessionModel
	err := db.Where(activeSessionClause, userID, false, now).
		Order("created_at ASC").
		First(&sessionM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find oldest session")
	}

	return toSessionDomain(&sessionM), nil
}

func (repo *sessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var sessionModels []model.SessionModel
	err := db.Where(activeSessionClause, userID, false, now).
		Order("created_at DESC").
		Find(&sessionModels).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list sessions")
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for i := range sessionModels {
		sessions = append(sessions, toSessionDomain(&sessionModels[i]))
	}

	return sessions, nil
}

func (repo *sessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.SessionModel{}).
		Where("id = ? AND is_revoked = ?", id, false).
		Update("is_revoked", true)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

func (repo *sessionRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.SessionModel{}).
		Where("refresh_token_hash = ? AND is_revoked = ?", tokenHash, false).
		Update("is_revoked", true)
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke session by hash")
	}

	return result.RowsAffected > 0, nil
}

func (repo *sessionRepository) RevokeAllActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.SessionModel{}).
		Where(activeSessionClause, userID, false, now).
		Update("is_revoked", true)
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke user sessions")
	}

	return int(result.RowsAffected), nil
}

func (repo *sessionRepository) DeleteDead(ctx context.Context, cutoff time.Time) (int, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Where("expire_at < ? OR (is_revoked = ? AND updated_at < ?)", cutoff, true, cutoff).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete dead sessions")
	}

	return int(result.RowsAffected), nil
}

func toSessionDomain(data *model.SessionModel) *entity.Session {
	if data == nil {
		return nil
	}

	return &entity.Session{
		ID:               data.ID,
		UserID:           data.UserID,
		RefreshTokenHash: data.RefreshTokenHash,
		ExpireAt:         data.ExpireAt,
		IsRevoked:        data.IsRevoked,
		CreatedAt:        data.CreatedAt,
	}
}

func fromSessionDomain(data *entity.Session) *model.SessionModel {
	if data == nil {
		return nil
	}

	return &model.SessionModel{
		ID:               data.ID,
		UserID:           data.UserID,
		RefreshTokenHash: data.RefreshTokenHash,
		ExpireAt:         data.ExpireAt,
		IsRevoked:        data.IsRevoked,
		CreatedAt:        data.CreatedAt,
	}
}
