package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a persisted grant that lets one refresh token mint access tokens.
// Only the SHA-256 hash of the refresh token is ever stored.
type Session struct {
	ID               uuid.UUID // The unique ID for this session record.
	UserID           uuid.UUID // The identity this session belongs to.
	RefreshTokenHash string    // Hex SHA-256 of the raw refresh token.
	ExpireAt         time.Time // After this instant the session is dead regardless of IsRevoked.
	IsRevoked        bool      // Set by logout, logout-all, and cap eviction.
	CreatedAt        time.Time // Login time; the eviction order.
}

// IsActive reports whether the session can still be used at now.
func (s *Session) IsActive(now time.Time) bool {
	return !s.IsRevoked && s.ExpireAt.After(now)
}

// TokenPair is what a successful login hands back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
