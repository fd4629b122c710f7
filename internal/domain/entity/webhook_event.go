package entity

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records one verified provider delivery so redeliveries of the
// same event id are recognised.
type WebhookEvent struct {
	ID              uuid.UUID
	Provider        string
	EventID         string
	EventType       string
	ProviderOrderID string
	ProcessedAt     *time.Time
	ProcessingError string
	CreatedAt       time.Time
}
