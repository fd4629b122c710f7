package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "fintrack/internal/delivery/context"
	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/errors"
	"fintrack/internal/usecase"

	"github.com/google/uuid"
)

// subscriptionService implements the SubscriptionUsecase interface.
type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	logger           *slog.Logger
}

// NewSubscriptionService is the constructor for subscriptionService.
func NewSubscriptionService(subscriptionRepo repository.SubscriptionRepository, logger *slog.Logger) usecase.SubscriptionUsecase {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

func (srv *subscriptionService) GetSubscription(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	subscription, err := srv.subscriptionRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, domainerrors.ErrSubscriptionNotFound
		}

		return nil, errors.Wrap(err, "failed to find subscription")
	}

	return subscription, nil
}

func (srv *subscriptionService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	expired, err := srv.subscriptionRepo.ExpireDue(ctx, now)
	if err != nil {
		deliverycontext.LoggerOrDefault(ctx, srv.logger).Error("Subscription expiry sweep failed", slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to expire subscriptions")
	}

	deliverycontext.LoggerOrDefault(ctx, srv.logger).Info("Expired lapsed subscriptions", slog.Int("count", expired))

	return expired, nil
}
