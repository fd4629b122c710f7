// Package razorpay implements service.PaymentGateway against the Razorpay
// Orders API and its signed callbacks and webhooks.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fintrack/config"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"

	"github.com/google/uuid"
)

const (
	ProviderName = "razorpay"

	defaultBaseURL = "https://api.razorpay.com"
	maxReceiptLen  = 40
	maxBodyBytes   = 1 << 20
	defaultTimeout = 10 * time.Second
)

// Gateway is the Razorpay implementation of service.PaymentGateway.
type Gateway struct {
	baseURL       string
	keyID         string
	keySecret     []byte
	webhookSecret []byte
	httpClient    *http.Client
}

// NewGateway is the constructor for Gateway.
func NewGateway(cfg *config.Config) (*Gateway, error) {
	pc := cfg.Payment
	if pc == nil || pc.KeyID == "" || pc.KeySecret == "" {
		return nil, errors.New("payment key id and key secret must be provided")
	}
	if pc.WebhookSecret == "" {
		return nil, errors.New("payment webhook secret must be provided")
	}

	baseURL := strings.TrimRight(pc.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Gateway{
		baseURL:       baseURL,
		keyID:         pc.KeyID,
		keySecret:     []byte(pc.KeySecret),
		webhookSecret: []byte(pc.WebhookSecret),
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

// NewPaymentGateway exposes Gateway as the domain interface for Fx.
func NewPaymentGateway(cfg *config.Config) (service.PaymentGateway, error) {
	return NewGateway(cfg)
}

func (g *Gateway) Name() string {
	return ProviderName
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder opens a provider order. Any transport or non-2xx failure is
// reported as ErrPaymentProviderUnavailable.
func (g *Gateway) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.ProviderOrder, error) {
	if input.Amount <= 0 || input.Currency == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("amount and currency are required")
	}

	body, err := json.Marshal(orderRequest{
		Amount:   input.Amount,
		Currency: input.Currency,
		Receipt:  newReceipt(),
		Notes: map[string]string{
			"identity_id": input.UserID,
			"plan":        input.Plan,
		},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build order request")
	}
	req.SetBasicAuth(g.keyID, string(g.keySecret))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, domainerrors.ErrPaymentProviderUnavailable.WithDetails(fmt.Sprintf("order request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domainerrors.ErrPaymentProviderUnavailable.WithDetails(fmt.Sprintf("read order response: %v", err))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, domainerrors.ErrPaymentProviderUnavailable.WithDetails(fmt.Sprintf("order creation failed: status=%d", resp.StatusCode))
	}

	var order orderResponse
	if err := json.Unmarshal(respBody, &order); err != nil || order.ID == "" {
		return nil, domainerrors.ErrPaymentProviderUnavailable.WithDetails("order response could not be decoded")
	}

	return &service.ProviderOrder{
		OrderID:  order.ID,
		Receipt:  order.Receipt,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   order.Status,
		KeyID:    g.keyID,
	}, nil
}

// VerifyPayment checks the checkout callback signature HMAC-SHA256(keySecret, order|payment).
func (g *Gateway) VerifyPayment(proof service.PaymentProof) error {
	if proof.OrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return domainerrors.ErrValidationFailed.WithDetails("order id, payment id and signature are required")
	}

	if !validSignature(g.keySecret, []byte(proof.OrderID+"|"+proof.PaymentID), proof.Signature) {
		return domainerrors.ErrPaymentSignatureInvalid
	}

	return nil
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleWebhook authenticates rawBody with the webhook secret and only then parses it.
func (g *Gateway) HandleWebhook(rawBody []byte, signature string) (*service.WebhookEvent, error) {
	if signature == "" {
		return nil, domainerrors.ErrWebhookSignatureMissing
	}
	if !validSignature(g.webhookSecret, rawBody, signature) {
		return nil, domainerrors.ErrWebhookSignatureInvalid
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, domainerrors.ErrWebhookPayloadInvalid.WithDetails(err.Error())
	}

	event := &service.WebhookEvent{
		Type:   envelope.Event,
		Status: statusFor(envelope.Event),
	}

	if payment := envelope.Payload.Payment; payment != nil {
		event.OrderID = payment.Entity.OrderID
		event.PaymentID = payment.Entity.ID
		event.ErrorDescription = payment.Entity.ErrorDescription
	}
	if refund := envelope.Payload.Refund; refund != nil {
		event.RefundID = refund.Entity.ID
		if event.PaymentID == "" {
			event.PaymentID = refund.Entity.PaymentID
		}
	}

	return event, nil
}

// Sign returns the hex HMAC-SHA256 of message under secret.
func Sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)

	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret, message []byte, signature string) bool {
	expected := Sign(secret, message)

	return hmac.Equal([]byte(expected), []byte(signature))
}

func statusFor(event string) service.WebhookStatus {
	switch event {
	case "payment.captured":
		return service.WebhookStatusCompleted
	case "payment.failed":
		return service.WebhookStatusFailed
	case "refund.created":
		return service.WebhookStatusRefunded
	default:
		return service.WebhookStatusIgnored
	}
}

func newReceipt() string {
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(receipt) > maxReceiptLen {
		receipt = receipt[:maxReceiptLen]
	}

	return receipt
}
