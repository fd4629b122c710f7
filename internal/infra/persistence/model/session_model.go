package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table. The active-session lookups all
// filter on (user_id, is_revoked, expire_at).
type SessionModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_user_active,priority:1"`
	RefreshTokenHash string    `gorm:"type:varchar(64);unique;not null"`
	ExpireAt         time.Time `gorm:"not null;index:idx_sessions_user_active,priority:3"`
	IsRevoked        bool      `gorm:"not null;default:false;index:idx_sessions_user_active,priority:2"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
