package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionModel mirrors the 'subscriptions' table. One row per user.
type SubscriptionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Plan      string    `gorm:"type:varchar(50);not null"`
	Status    string    `gorm:"type:varchar(20);not null;index:idx_subscriptions_status_expires,priority:1"`
	ExpiresAt time.Time `gorm:"not null;index:idx_subscriptions_status_expires,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
