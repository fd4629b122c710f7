package handler

import (
	"io"
	"log/slog"
	"net/http"

	"fintrack/internal/delivery/api/response"
	deliverycontext "fintrack/internal/delivery/context"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"
	"fintrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// maxWebhookBodyBytes bounds provider deliveries read into memory.
const maxWebhookBodyBytes = 1 << 20

// PaymentHandlerParams holds dependencies for PaymentHandler, injected by Fx.
type PaymentHandlerParams struct {
	fx.In

	PaymentUC usecase.PaymentUsecase
	Logger    *slog.Logger
}

// PaymentHandler serves the plan catalog, checkout and provider webhooks.
type PaymentHandler struct {
	paymentUC usecase.PaymentUsecase
	logger    *slog.Logger
}

// NewPaymentHandler is the constructor for PaymentHandler
func NewPaymentHandler(params PaymentHandlerParams) *PaymentHandler {
	return &PaymentHandler{
		paymentUC: params.PaymentUC,
		logger:    params.Logger,
	}
}

// CreateOrderRequest represents the request body for opening a checkout
type CreateOrderRequest struct {
	Plan     string `json:"plan" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// VerifyPaymentRequest is the provider checkout callback forwarded by the client
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type createOrderResponse struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Receipt   string    `json:"receipt"`
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	KeyID     string    `json:"key_id"`
}

type verifyPaymentResponse struct {
	Payment      *PaymentView      `json:"payment"`
	Subscription *SubscriptionView `json:"subscription"`
}

// ListPlans returns the purchasable plans.
func (h *PaymentHandler) ListPlans(c echo.Context) error {
	return response.Success(c, http.StatusOK, newPlanViews(h.paymentUC.ListPlans(c.Request().Context())))
}

// CreateOrder opens a provider order for the caller.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	userID, ok := deliverycontext.GetUserID(c)
	if !ok {
		return domainerrors.ErrTokenInvalid
	}

	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.paymentUC.CreateOrder(c.Request().Context(), userID, &usecase.CreateOrderInput{
		Plan:     req.Plan,
		Currency: req.Currency,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, createOrderResponse{
		PaymentID: output.PaymentID,
		OrderID:   output.OrderID,
		Receipt:   output.Receipt,
		Plan:      output.Plan,
		Amount:    output.Amount,
		Currency:  output.Currency,
		KeyID:     output.KeyID,
	})
}

// VerifyPayment settles a checkout the client completed.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	userID, ok := deliverycontext.GetUserID(c)
	if !ok {
		return domainerrors.ErrTokenInvalid
	}

	var req VerifyPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.paymentUC.VerifyPayment(c.Request().Context(), userID, &usecase.VerifyPaymentInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, verifyPaymentResponse{
		Payment:      newPaymentView(output.Payment),
		Subscription: newSubscriptionView(output.Subscription),
	})
}

// Webhook accepts a provider delivery. The body is read raw because the
// signature covers the exact bytes.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	rawBody, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "webhook body too large")
		}

		return domainerrors.ErrWebhookPayloadInvalid.WithDetails("body could not be read")
	}

	err = h.paymentUC.HandleWebhook(c.Request().Context(), &usecase.WebhookInput{
		RawBody:   rawBody,
		Signature: c.Request().Header.Get(service.WebhookSignatureHeader),
		EventID:   c.Request().Header.Get(service.WebhookEventIDHeader),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
