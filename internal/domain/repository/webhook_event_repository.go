package repository

import (
	"context"

	"fintrack/internal/domain/entity"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

// ErrWebhookEventDuplicate is returned when the provider event id was already recorded.
var ErrWebhookEventDuplicate = errors.New("webhook event already recorded")

// WebhookEventRepository keeps the delivery log of verified provider webhooks.
type WebhookEventRepository interface {
	// Record inserts the event. Returns ErrWebhookEventDuplicate on redelivery.
	Record(ctx context.Context, event *entity.WebhookEvent) error

	// MarkProcessed stores the processing outcome; processingError is empty on success.
	MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error
}
