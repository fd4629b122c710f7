// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RequestOTPInput starts a passwordless login for Email.
type RequestOTPInput struct {
	Email string
}

// VerifyOTPInput completes a passwordless login.
type VerifyOTPInput struct {
	Email string
	Code  string
}

// --- Output DTOs ---

// RequestOTPOutput tells the client when the code lapses and when it may ask again.
// The code itself only travels through the notification channel.
type RequestOTPOutput struct {
	ExpiresAt   time.Time
	ResendAfter time.Time
}

// LoginOutput returns the generated tokens after a successful login.
type LoginOutput struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

// RefreshOutput carries the newly minted access token.
type RefreshOutput struct {
	AccessToken string
}

// LogoutOutput reports whether a live session was revoked.
type LogoutOutput struct {
	Revoked bool
}

// LogoutAllOutput reports how many sessions were revoked.
type LogoutAllOutput struct {
	Count int
}

// AuthUsecase defines the passwordless login flow exposed on /auth.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	RequestOTP(ctx context.Context, input *RequestOTPInput) (*RequestOTPOutput, error)
	VerifyOTP(ctx context.Context, input *VerifyOTPInput) (*LoginOutput, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshOutput, error)
	Logout(ctx context.Context, refreshToken string) (*LogoutOutput, error)
	LogoutAll(ctx context.Context, userID uuid.UUID) (*LogoutAllOutput, error)
}
