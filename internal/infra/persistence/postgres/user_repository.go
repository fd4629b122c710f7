// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
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

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	baseRepository
}

// NewUserRepository is the constructor for userRepository.
func NewUserRepository(db *gorm.DB, cfg *config.Config) repository.UserRepository {
	return newUserRepository(db, cfg.Upstream.StoreTimeout)
}

func newUserRepository(db *gorm.DB, timeout time.Duration) *userRepository {
	return &userRepository{baseRepository: newBaseRepository(db, timeout)}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var userM model.UserModel
	if err := db.Where("id = ?", id).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find user by id")
	}

	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var userM model.UserModel
	if err := db.Where("email = ?", email).First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user entity.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	userM := fromUserDomain(user)
	if err := db.Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrUserAlreadyExists
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// MarkEmailVerified sets the email-verified flag.
func (repo *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	result := db.Model(&model.UserModel{}).
		Where("id = ?", id).
		Update("email_verified", true)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to mark email verified")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// LockForSessionIssue runs SELECT ... FOR UPDATE on the user row. It only
// serializes callers when used inside a transaction.
func (repo *userRepository) LockForSessionIssue(ctx context.Context, id uuid.UUID) error {
	db, cancel := repo.conn(ctx)
	defer cancel()

	var userM model.UserModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&userM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to lock user")
	}

	return nil
}

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:            data.ID,
		Email:         data.Email,
		Name:          data.Name,
		Role:          entity.ParseRole(data.Role),
		Status:        entity.UserStatus(data.Status),
		EmailVerified: data.EmailVerified,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	role := data.Role
	if !role.IsValid() {
		role = entity.RoleUser
	}
	status := data.Status
	if status == "" {
		status = entity.UserStatusActive
	}

	return &model.UserModel{
		ID:            data.ID,
		Email:         data.Email,
		Name:          data.Name,
		Role:          role.String(),
		Status:        string(status),
		EmailVerified: data.EmailVerified,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}
