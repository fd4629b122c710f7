package usecase

import (
	"context"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
)

// OTPUsecase issues and checks one-time codes for an (identity, email) pair.
type OTPUsecase interface {
	// RequestOTP replaces any live code for the pair. The returned issue holds the plaintext code.
	RequestOTP(ctx context.Context, userID uuid.UUID, email string) (*entity.OTPIssue, error)
	// VerifyOTP consumes the live code when candidate matches it.
	VerifyOTP(ctx context.Context, userID uuid.UUID, email, candidate string) error
	// ClearOTP drops every code of the pair.
	ClearOTP(ctx context.Context, userID uuid.UUID, email string) error
}
