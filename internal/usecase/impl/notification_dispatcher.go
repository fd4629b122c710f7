// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "fintrack/internal/delivery/context"
	"fintrack/internal/domain/service"
)

const notificationEnqueueTimeout = 3 * time.Second

// notificationDispatcher hands events to the publisher. Enqueue failures are
// logged and swallowed so they never fail the operation that triggered them.
type notificationDispatcher struct {
	publisher service.EventPublisher
	logger    *slog.Logger
}

func newNotificationDispatcher(publisher service.EventPublisher, logger *slog.Logger) *notificationDispatcher {
	return &notificationDispatcher{publisher: publisher, logger: logger}
}

func (d *notificationDispatcher) enqueue(ctx context.Context, event *service.NotificationEvent) {
	if d.publisher == nil {
		return
	}

	if event.RequestID == "" {
		event.RequestID = deliverycontext.RequestIDFrom(ctx)
	}

	// The request may be finished before the broker answers.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationEnqueueTimeout)
	defer cancel()

	if err := d.publisher.PublishNotification(publishCtx, event); err != nil {
		deliverycontext.LoggerOrDefault(ctx, d.logger).Warn("Failed to enqueue notification",
			slog.String("kind", string(event.Kind)),
			slog.String("userID", event.UserID),
			slog.Any("error", err),
		)
	}
}
