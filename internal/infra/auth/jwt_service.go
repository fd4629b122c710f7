// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fintrack/config"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"
)

// jwtService is the HS256 implementation of service.TokenCodec.
type jwtService struct {
	accessSecret  []byte        // Secret key for signing access tokens.
	refreshSecret []byte        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	now           func() time.Time
}

// tokenClaims is the wire form of service.Claims.
type tokenClaims struct {
	Role string            `json:"role,omitempty"`
	Type service.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenCodec, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}
	if cfg.SecretKey.Access == cfg.SecretKey.Refresh {
		return nil, errors.New("access and refresh secrets must differ")
	}

	accessTTL, refreshTTL := 15*time.Minute, 7*24*time.Hour
	if cfg.Auth != nil {
		if cfg.Auth.AccessTokenTTL > 0 {
			accessTTL = cfg.Auth.AccessTokenTTL
		}
		if cfg.Auth.RefreshTokenTTL > 0 {
			refreshTTL = cfg.Auth.RefreshTokenTTL
		}
	}

	return &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(cfg.SecretKey.Refresh),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (s *jwtService) IssueAccessToken(userID uuid.UUID, role string) (string, error) {
	return s.issue(userID, role, service.TokenKindAccess, s.accessTTL, s.accessSecret)
}

// IssueRefreshToken never embeds a role; it is re-read from the session owner on refresh.
func (s *jwtService) IssueRefreshToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, "", service.TokenKindRefresh, s.refreshTTL, s.refreshSecret)
}

func (s *jwtService) VerifyAccessToken(token string) (*service.Claims, error) {
	return s.verify(token, service.TokenKindAccess, s.accessSecret)
}

func (s *jwtService) VerifyRefreshToken(token string) (*service.Claims, error) {
	return s.verify(token, service.TokenKindRefresh, s.refreshSecret)
}

// HashToken returns the hex SHA-256 of the raw token.
func (s *jwtService) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

func (s *jwtService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) issue(userID uuid.UUID, role string, kind service.TokenKind, ttl time.Duration, secret []byte) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: role,
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// A unique jti keeps two refresh tokens issued in the same second distinct.
			ID: uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrapf(err, "failed to sign %s token", kind)
	}

	return signed, nil
}

func (s *jwtService) verify(token string, kind service.TokenKind, secret []byte) (*service.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrTokenExpired.WrapMessage(kind.String())
		}

		return nil, domainerrors.ErrTokenInvalid.WrapMessage(err.Error())
	}

	if claims.Type != kind {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("unexpected token type")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("malformed subject")
	}

	return &service.Claims{
		UserID:           userID,
		Role:             claims.Role,
		Type:             claims.Type,
		RegisteredClaims: claims.RegisteredClaims,
	}, nil
}
