package repository

import (
	"context"
	"time"

	"fintrack/internal/domain/entity"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

// ErrOTPNotFound is returned when no live OTP exists for the pair.
var ErrOTPNotFound = errors.New("otp not found")

// OTPRepository is the durable fallback copy of issued codes.
type OTPRepository interface {
	Create(ctx context.Context, record *entity.OTPRecord) error

	// FindLatestActive returns the newest unverified, unexpired record for the pair.
	FindLatestActive(ctx context.Context, userID uuid.UUID, email string, now time.Time) (*entity.OTPRecord, error)

	// MarkVerified flips verified on an unverified record. It reports whether a row changed.
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)

	// DeleteByUserAndEmail clears every record of the pair.
	DeleteByUserAndEmail(ctx context.Context, userID uuid.UUID, email string) error
}
