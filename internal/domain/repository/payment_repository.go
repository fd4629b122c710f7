package repository

import (
	"context"

	"fintrack/internal/domain/entity"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

var (
	// ErrPaymentNotFound is returned when no payment matches.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentAlreadyExists is returned on a duplicate provider order or payment id.
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

// PaymentRepository persists payments. Status changes are conditional on
// PENDING so concurrent settlement paths cannot both transition a row.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error

	FindByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error)

	// MarkCompleted applies the settlement when the payment is still PENDING.
	// It reports whether the row was transitioned.
	MarkCompleted(ctx context.Context, settlement *entity.Settlement) (bool, error)

	// MarkFailed sets FAILED with reason when the payment is still PENDING.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}
