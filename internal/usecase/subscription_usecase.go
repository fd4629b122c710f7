package usecase

import (
	"context"
	"time"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
)

// SubscriptionUsecase exposes the entitlement row and its expiry sweep.
type SubscriptionUsecase interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error)
	// ExpireDue moves every lapsed ACTIVE subscription to EXPIRED in one statement.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
