package usecase

import (
	"context"
	"time"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase defines the interface for session management operations.
type SessionUsecase interface {
	// IssueSessionAndTokens persists a new session, evicting the oldest once the cap is reached.
	IssueSessionAndTokens(ctx context.Context, userID uuid.UUID, role entity.Role) (*entity.TokenPair, error)
	// Refresh mints an access token for a live session. The refresh token is not rotated.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) (bool, error)
	LogoutAll(ctx context.Context, userID uuid.UUID) (int, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error
	// CleanupDead purges sessions that died before the cutoff.
	CleanupDead(ctx context.Context, before time.Time) (int, error)
}
