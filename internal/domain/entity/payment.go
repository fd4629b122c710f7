package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a Payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PendingPaymentIDPrefix marks a provider payment id that is not known yet.
const PendingPaymentIDPrefix = "pending_"

// IsTerminal reports whether no further transition is allowed by the engine.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

// Payment tracks one provider order from creation to settlement.
type Payment struct {
	ID                uuid.UUID     // Local payment id.
	UserID            uuid.UUID     // Identity the order was created for.
	Plan              string        // Plan code purchased.
	Provider          string        // Gateway name, e.g. "razorpay".
	Amount            int64         // Minor units (paise, cents).
	Currency          string        // ISO 4217 code.
	ProviderOrderID   string        // Unique provider order id.
	ProviderPaymentID string        // Unique provider payment id, "pending_<order>" until settled.
	Status            PaymentStatus // See PaymentStatus.
	FailureReason     string        // Set when Status is FAILED.
	SubscriptionID    *uuid.UUID    // Subscription activated by this payment.
	PaidAt            *time.Time    // Settlement time.
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PendingPaymentID builds the placeholder stored before settlement.
func PendingPaymentID(orderID string) string {
	return PendingPaymentIDPrefix + orderID
}

// HasPlaceholderPaymentID reports whether the real provider payment id is still unknown.
func (p *Payment) HasPlaceholderPaymentID() bool {
	return strings.HasPrefix(p.ProviderPaymentID, PendingPaymentIDPrefix)
}

// Settlement describes the writes performed when a payment succeeds.
type Settlement struct {
	PaymentID         uuid.UUID
	ProviderPaymentID string
	SubscriptionID    uuid.UUID
	PaidAt            time.Time
}
