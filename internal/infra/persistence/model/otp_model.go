package model

import (
	"time"

	"github.com/google/uuid"
)

// OTPModel mirrors the 'otp_records' table, the durable fallback for the OTP cache.
type OTPModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_otp_user_email,priority:1"`
	Email     string    `gorm:"type:varchar(255);not null;index:idx_otp_user_email,priority:2"`
	OTPHash   string    `gorm:"column:otp_hash;type:varchar(255);not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (OTPModel) TableName() string {
	return "otp_records"
}
