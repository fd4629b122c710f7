package service

import (
	"context"
)

// WebhookArchive keeps the verified raw bytes of provider deliveries for reconciliation.
type WebhookArchive interface {
	Store(ctx context.Context, eventID string, rawBody []byte) error
	Close() error
}
