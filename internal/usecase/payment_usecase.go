package usecase

import (
	"context"

	"fintrack/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// CreateOrderInput selects a plan and the currency to pay in.
type CreateOrderInput struct {
	Plan     string
	Currency string
}

// VerifyPaymentInput is the checkout callback forwarded by the client.
type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// WebhookInput is one provider delivery exactly as received.
type WebhookInput struct {
	RawBody   []byte
	Signature string
	EventID   string
}

// --- Output DTOs ---

// CreateOrderOutput is what the client needs to open the provider checkout.
type CreateOrderOutput struct {
	PaymentID uuid.UUID
	OrderID   string
	Receipt   string
	Plan      string
	Amount    int64
	Currency  string
	KeyID     string
}

// VerifyPaymentOutput holds the settled payment and the subscription it activated.
type VerifyPaymentOutput struct {
	Payment      *entity.Payment
	Subscription *entity.Subscription
}

// PaymentUsecase drives orders from creation to settlement.
type PaymentUsecase interface {
	ListPlans(ctx context.Context) []*entity.Plan
	CreateOrder(ctx context.Context, userID uuid.UUID, input *CreateOrderInput) (*CreateOrderOutput, error)
	VerifyPayment(ctx context.Context, userID uuid.UUID, input *VerifyPaymentInput) (*VerifyPaymentOutput, error)
	// HandleWebhook only fails on signature problems; everything after that is acknowledged.
	HandleWebhook(ctx context.Context, input *WebhookInput) error
}
