// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"fintrack/internal/domain/entity"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is a domain-specific error returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the email is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository is the narrow view of the identity store this engine needs.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their normalized email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user. Returns ErrUserAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *entity.User) error

	// MarkEmailVerified sets the email-verified flag.
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error

	// LockForSessionIssue takes a row lock on the user for the rest of the
	// transaction so concurrent logins of one identity serialize.
	LockForSessionIssue(ctx context.Context, id uuid.UUID) error
}
