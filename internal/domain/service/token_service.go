package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access and refresh tokens inside the signed claims.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	UserID uuid.UUID
	Role   string // Empty for refresh tokens
	Type   TokenKind
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the two token kinds with independent secrets.
type TokenCodec interface {
	// IssueAccessToken signs a short-lived token carrying the identity and role.
	IssueAccessToken(userID uuid.UUID, role string) (string, error)

	// IssueRefreshToken signs a long-lived token carrying the identity only.
	IssueRefreshToken(userID uuid.UUID) (string, error)

	// VerifyAccessToken fails with ErrTokenInvalid or ErrTokenExpired.
	VerifyAccessToken(token string) (*Claims, error)

	// VerifyRefreshToken fails with ErrTokenInvalid or ErrTokenExpired.
	VerifyRefreshToken(token string) (*Claims, error)

	// HashToken returns the digest sessions are stored under.
	HashToken(token string) string

	// RefreshTokenTTL returns the configured lifetime of refresh tokens.
	RefreshTokenTTL() time.Duration
}

func (k TokenKind) String() string {
	return string(k)
}
