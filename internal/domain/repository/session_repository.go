package repository

import (
	"context"
	"time"

	"fintrack/internal/domain/entity"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no session matches.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists refresh-token sessions. "Active" always means
// not revoked and expire_at after now.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error

	// FindByID returns the session regardless of state.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// FindActiveByHash looks up an active session by refresh token hash.
	FindActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*entity.Session, error)

	CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// FindOldestActiveByUserID returns the active session with the earliest created_at.
	FindOldestActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (*entity.Session, error)

	// ListActiveByUserID returns active sessions, newest first.
	ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error)

	// Revoke revokes one session and returns ErrSessionNotFound if it was not active.
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeByHash revokes the session holding tokenHash. It reports whether a row changed.
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)

	// RevokeAllActiveByUserID revokes every active session of the user and returns the count.
	RevokeAllActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// DeleteDead removes sessions that expired or were revoked before cutoff.
	DeleteDead(ctx context.Context, cutoff time.Time) (int, error)
}
