package service

import (
	"context"
)

// CreateOrderInput is what the gateway needs to open a provider order.
type CreateOrderInput struct {
	Amount   int64
	Currency string
	UserID   string
	Plan     string
}

// ProviderOrder is the provider's acknowledgement of a new order.
type ProviderOrder struct {
	OrderID  string
	Receipt  string
	Amount   int64
	Currency string
	Status   string
	KeyID    string // Public key the client checkout needs
}

// PaymentProof is the client-side callback after checkout.
type PaymentProof struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Provider webhook headers. The signature covers the exact request body.
const (
	WebhookSignatureHeader = "X-Razorpay-Signature"
	WebhookEventIDHeader   = "X-Razorpay-Event-Id"
)

// WebhookStatus is the closed set of outcomes a provider event maps to.
type WebhookStatus string

const (
	WebhookStatusCompleted WebhookStatus = "completed"
	WebhookStatusFailed    WebhookStatus = "failed"
	WebhookStatusRefunded  WebhookStatus = "refunded"
	WebhookStatusIgnored   WebhookStatus = "ignored"
)

// WebhookEvent is a verified and parsed provider delivery.
type WebhookEvent struct {
	Type             string
	Status           WebhookStatus
	OrderID          string
	PaymentID        string
	RefundID         string
	ErrorDescription string
}

// PaymentGateway is the protocol boundary to the single payment provider.
// Implementations never persist anything.
type PaymentGateway interface {
	// Name identifies the provider on stored records.
	Name() string

	CreateOrder(ctx context.Context, input CreateOrderInput) (*ProviderOrder, error)

	// VerifyPayment fails with ErrValidationFailed on missing fields and
	// ErrPaymentSignatureInvalid on mismatch.
	VerifyPayment(proof PaymentProof) error

	// HandleWebhook verifies signature over rawBody before parsing it.
	HandleWebhook(rawBody []byte, signature string) (*WebhookEvent, error)
}
