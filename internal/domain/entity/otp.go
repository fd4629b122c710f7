package entity

import (
	"time"

	"github.com/google/uuid"
)

// OTPRecord is the hashed one-time code for an (identity, email) pair.
// At most one unverified record per pair is live at a time.
type OTPRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	OTPHash   string    `json:"otp_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the record is past its validity window at now.
func (r *OTPRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// OTPIssue is the result of issuing a code. Code is plaintext and must only be
// handed to the delivery channel.
type OTPIssue struct {
	Code        string
	ExpiresAt   time.Time
	ResendAfter time.Time
}
