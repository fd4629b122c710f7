package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentModel mirrors the 'payments' table. Provider ids are unique so a
// replayed order or payment cannot create a second row.
type PaymentModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	Plan              string     `gorm:"type:varchar(50);not null"`
	Provider          string     `gorm:"type:varchar(30);not null"`
	Amount            int64      `gorm:"not null"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	ProviderOrderID   string     `gorm:"type:varchar(100);unique;not null"`
	ProviderPaymentID string     `gorm:"type:varchar(120);unique;not null"`
	Status            string     `gorm:"type:varchar(20);not null;index"`
	FailureReason     string     `gorm:"type:text"`
	SubscriptionID    *uuid.UUID `gorm:"type:uuid"`
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName explicitly sets the table name for GORM.
func (PaymentModel) TableName() string {
	return "payments"
}
