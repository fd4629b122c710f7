package model

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEventModel mirrors the 'webhook_events' table, the provider delivery log.
type WebhookEventModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Provider        string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_webhook_provider_event"`
	EventID         string    `gorm:"type:varchar(120);not null;uniqueIndex:idx_webhook_provider_event"`
	EventType       string    `gorm:"type:varchar(60);not null"`
	ProviderOrderID string    `gorm:"type:varchar(100);index"`
	ProcessedAt     *time.Time
	ProcessingError string `gorm:"type:text"`
	CreatedAt       time.Time
}

// TableName explicitly sets the table name for GORM.
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// All lists every persisted model, in dependency order, for migrations.
func All() []any {
	return []any{
		&UserModel{},
		&SessionModel{},
		&OTPModel{},
		&SubscriptionModel{},
		&PaymentModel{},
		&WebhookEventModel{},
	}
}
