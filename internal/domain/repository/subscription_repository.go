package repository

import (
	"context"
	"time"

	"fintrack/internal/domain/entity"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

// ErrSubscriptionNotFound is returned when the identity has no subscription row.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionRepository persists the one-per-identity subscription row.
type SubscriptionRepository interface {
	// Upsert creates the row or replaces plan, status and expires_at keyed by user.
	// The stored id is written back into subscription.
	Upsert(ctx context.Context, subscription *entity.Subscription) error

	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error)

	// ExpireDue moves every ACTIVE row with expires_at <= now to EXPIRED.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
