package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/config"
	apimiddleware "fintrack/internal/delivery/api/middleware"
	"fintrack/internal/delivery/api/router"
	"fintrack/internal/delivery/api/router/handler"
	deliverycontext "fintrack/internal/delivery/context"
	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/service"
	"fintrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthUsecase struct{ mock.Mock }

func (m *mockAuthUsecase) RequestOTP(ctx context.Context, input *usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.RequestOTPOutput)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) VerifyOTP(ctx context.Context, input *usecase.VerifyOTPInput) (*usecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.LoginOutput)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) Refresh(ctx context.Context, refreshToken string) (*usecase.RefreshOutput, error) {
	args := m.Called(ctx, refreshToken)
	out, _ := args.Get(0).(*usecase.RefreshOutput)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, refreshToken string) (*usecase.LogoutOutput, error) {
	args := m.Called(ctx, refreshToken)
	out, _ := args.Get(0).(*usecase.LogoutOutput)

	return out, args.Error(1)
}

func (m *mockAuthUsecase) LogoutAll(ctx context.Context, userID uuid.UUID) (*usecase.LogoutAllOutput, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*usecase.LogoutAllOutput)

	return out, args.Error(1)
}

type mockSessionUsecase struct{ mock.Mock }

func (m *mockSessionUsecase) IssueSessionAndTokens(ctx context.Context, userID uuid.UUID, role entity.Role) (*entity.TokenPair, error) {
	args := m.Called(ctx, userID, role)
	out, _ := args.Get(0).(*entity.TokenPair)

	return out, args.Error(1)
}

func (m *mockSessionUsecase) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)

	return args.String(0), args.Error(1)
}

func (m *mockSessionUsecase) Logout(ctx context.Context, refreshToken string) (bool, error) {
	args := m.Called(ctx, refreshToken)

	return args.Bool(0), args.Error(1)
}

func (m *mockSessionUsecase) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)

	return args.Int(0), args.Error(1)
}

func (m *mockSessionUsecase) ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]*entity.Session)

	return out, args.Error(1)
}

func (m *mockSessionUsecase) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return m.Called(ctx, userID, sessionID).Error(0)
}

func (m *mockSessionUsecase) CleanupDead(ctx context.Context, before time.Time) (int, error) {
	args := m.Called(ctx, before)

	return args.Int(0), args.Error(1)
}

type mockPaymentUsecase struct{ mock.Mock }

func (m *mockPaymentUsecase) ListPlans(ctx context.Context) []*entity.Plan {
	out, _ := m.Called(ctx).Get(0).([]*entity.Plan)

	return out
}

func (m *mockPaymentUsecase) CreateOrder(ctx context.Context, userID uuid.UUID, input *usecase.CreateOrderInput) (*usecase.CreateOrderOutput, error) {
	args := m.Called(ctx, userID, input)
	out, _ := args.Get(0).(*usecase.CreateOrderOutput)

	return out, args.Error(1)
}

func (m *mockPaymentUsecase) VerifyPayment(ctx context.Context, userID uuid.UUID, input *usecase.VerifyPaymentInput) (*usecase.VerifyPaymentOutput, error) {
	args := m.Called(ctx, userID, input)
	out, _ := args.Get(0).(*usecase.VerifyPaymentOutput)

	return out, args.Error(1)
}

func (m *mockPaymentUsecase) HandleWebhook(ctx context.Context, input *usecase.WebhookInput) error {
	return m.Called(ctx, input).Error(0)
}

type mockSubscriptionUsecase struct{ mock.Mock }

func (m *mockSubscriptionUsecase) GetSubscription(ctx context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*entity.Subscription)

	return out, args.Error(1)
}

func (m *mockSubscriptionUsecase) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)

	return args.Int(0), args.Error(1)
}

type stubTokens struct {
	service.TokenCodec
	userID uuid.UUID
}

func (s *stubTokens) VerifyAccessToken(token string) (*service.Claims, error) {
	if token != "valid-access" {
		return nil, domainerrors.ErrTokenInvalid
	}

	return &service.Claims{UserID: s.userID, Role: "USER", Type: service.TokenKindAccess}, nil
}

type testAPI struct {
	echo          *echo.Echo
	userID        uuid.UUID
	auth          *mockAuthUsecase
	sessions      *mockSessionUsecase
	payments      *mockPaymentUsecase
	subscriptions *mockSubscriptionUsecase
}

func newTestAPI(t *testing.T, rpm int) *testAPI {
	t.Helper()

	cfg := &config.Config{RateLimit: &config.RateLimitConfig{Enabled: rpm > 0, RequestsPerMinute: rpm, Burst: rpm}}
	cfg.HTTP.MaxRequestBodySize = "100KB"
	logger := slog.New(slog.DiscardHandler)

	api := &testAPI{
		userID:        uuid.New(),
		auth:          &mockAuthUsecase{},
		sessions:      &mockSessionUsecase{},
		payments:      &mockPaymentUsecase{},
		subscriptions: &mockSubscriptionUsecase{},
	}

	routes := router.NewRouter(router.RouterParams{
		AuthHandler:         handler.NewAuthHandler(handler.AuthHandlerParams{AuthUC: api.auth, Logger: logger}),
		SessionHandler:      handler.NewSessionHandler(handler.SessionHandlerParams{SessionUC: api.sessions, Logger: logger}),
		PaymentHandler:      handler.NewPaymentHandler(handler.PaymentHandlerParams{PaymentUC: api.payments, Logger: logger}),
		SubscriptionHandler: handler.NewSubscriptionHandler(handler.SubscriptionHandlerParams{SubscriptionUC: api.subscriptions, Logger: logger}),
		AuthMiddleware:      apimiddleware.NewAuthMiddleware(&stubTokens{userID: api.userID}),
		RateLimiter:         apimiddleware.NewRateLimiter(cfg),
	})
	api.echo = NewEcho(cfg, logger, routes)

	return api
}

func (a *testAPI) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	return rec
}

var bearer = map[string]string{echo.HeaderAuthorization: "Bearer valid-access"}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	errInfo, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())

	return errInfo["code"].(string)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(http.MethodGet, "/health", "", map[string]string{deliverycontext.HeaderXRequestID: "req-h"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-h", rec.Header().Get(deliverycontext.HeaderXRequestID))
	assert.Equal(t, "req-h", decode(t, rec)["meta"].(map[string]any)["request_id"])
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t, 0)
	expires := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)

	api.auth.On("RequestOTP", mock.Anything, &usecase.RequestOTPInput{Email: "u1@x.com"}).
		Return(&usecase.RequestOTPOutput{ExpiresAt: expires, ResendAfter: expires}, nil)
	api.auth.On("VerifyOTP", mock.Anything, &usecase.VerifyOTPInput{Email: "u1@x.com", Code: "000000"}).
		Return(nil, domainerrors.ErrOTPInvalid)
	api.auth.On("VerifyOTP", mock.Anything, &usecase.VerifyOTPInput{Email: "u1@x.com", Code: "483920"}).
		Return(&usecase.LoginOutput{
			AccessToken:  "a",
			RefreshToken: "r",
			User:         &entity.User{ID: api.userID, Email: "u1@x.com", Role: entity.RoleUser, EmailVerified: true},
		}, nil)
	api.auth.On("Refresh", mock.Anything, "stale").Return(nil, domainerrors.ErrSessionNotFound)
	api.auth.On("Logout", mock.Anything, "stale").Return(&usecase.LogoutOutput{Revoked: false}, nil)

	rec := api.do(http.MethodPost, "/auth/otp/request", `{"email":"u1@x.com"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), "code")

	rec = api.do(http.MethodPost, "/auth/otp/request", `{"email":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/auth/otp/verify", `{"email":"u1@x.com","code":"000000"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "OTP_INVALID", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/auth/otp/verify", `{"email":"u1@x.com","code":"483920"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "r", data["refresh_token"])
	assert.Equal(t, true, data["user"].(map[string]any)["email_verified"])

	rec = api.do(http.MethodPost, "/auth/refresh", `{"refresh_token":"stale"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTHENTICATION_FAILED", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/auth/logout", `{"refresh_token":"stale"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"revoked": false}, decode(t, rec)["data"])
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	api := newTestAPI(t, 2)
	api.auth.On("Logout", mock.Anything, "t").Return(&usecase.LogoutOutput{}, nil)

	for range 2 {
		assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/auth/logout", `{"refresh_token":"t"}`, nil).Code)
	}

	rec := api.do(http.MethodPost, "/auth/logout", `{"refresh_token":"t"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))

	// Other route groups are not limited.
	api.payments.On("ListPlans", mock.Anything).Return([]*entity.Plan{})
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/payments/plans", "", nil).Code)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	api := newTestAPI(t, 0)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/logout-all"},
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodDelete, "/api/v1/sessions/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/payments/orders"},
		{http.MethodPost, "/api/v1/payments/verify"},
		{http.MethodGet, "/api/v1/subscription"},
	} {
		rec := api.do(route.method, route.path, "", map[string]string{echo.HeaderAuthorization: "Bearer forged"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "AUTHENTICATION_FAILED", errorCode(t, rec), route.path)
	}
}

func TestSessionRoutes(t *testing.T) {
	api := newTestAPI(t, 0)
	sessionID := uuid.New()
	foreign := uuid.New()

	api.auth.On("LogoutAll", mock.Anything, api.userID).Return(&usecase.LogoutAllOutput{Count: 3}, nil)
	api.sessions.On("ListSessions", mock.Anything, api.userID).
		Return([]*entity.Session{{ID: sessionID, UserID: api.userID, RefreshTokenHash: "secret-hash"}}, nil)
	api.sessions.On("RevokeSession", mock.Anything, api.userID, sessionID).Return(nil)
	api.sessions.On("RevokeSession", mock.Anything, api.userID, foreign).Return(domainerrors.ErrSessionOwnership)

	rec := api.do(http.MethodPost, "/api/v1/auth/logout-all", "", bearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"revoked": float64(3)}, decode(t, rec)["data"])

	rec = api.do(http.MethodGet, "/api/v1/sessions", "", bearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/v1/sessions/"+sessionID.String(), "", bearer).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/v1/sessions/"+foreign.String(), "", bearer).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/v1/sessions/not-a-uuid", "", bearer).Code)
}

func TestPaymentRoutes(t *testing.T) {
	api := newTestAPI(t, 0)
	paymentID := uuid.New()

	api.payments.On("CreateOrder", mock.Anything, api.userID, &usecase.CreateOrderInput{Plan: "PRO_MONTHLY", Currency: "INR"}).
		Return(&usecase.CreateOrderOutput{PaymentID: paymentID, OrderID: "order_1", Plan: "PRO_MONTHLY", Amount: 19900, Currency: "INR", KeyID: "rzp"}, nil)
	api.payments.On("CreateOrder", mock.Anything, api.userID, &usecase.CreateOrderInput{Plan: "GOLD", Currency: "INR"}).
		Return(nil, domainerrors.ErrPlanNotFound)
	api.payments.On("VerifyPayment", mock.Anything, api.userID, &usecase.VerifyPaymentInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}).
		Return(nil, domainerrors.ErrPaymentAlreadyProcessed)

	rec := api.do(http.MethodPost, "/api/v1/payments/orders", `{"plan":"PRO_MONTHLY","currency":"INR"}`, bearer)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "order_1", data["order_id"])
	assert.Equal(t, float64(19900), data["amount"])

	rec = api.do(http.MethodPost, "/api/v1/payments/orders", `{"plan":"GOLD","currency":"INR"}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PLAN_NOT_FOUND", errorCode(t, rec))

	rec = api.do(http.MethodPost, "/api/v1/payments/verify", `{"order_id":"order_1","payment_id":"pay_1","signature":"sig"}`, bearer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PAYMENT_ALREADY_PROCESSED", errorCode(t, rec))
}

func TestWebhookRoute(t *testing.T) {
	api := newTestAPI(t, 0)
	body := `{"event":"payment.captured"}`

	api.payments.On("HandleWebhook", mock.Anything, &usecase.WebhookInput{RawBody: []byte(body), Signature: "good", EventID: "evt_1"}).Return(nil)
	api.payments.On("HandleWebhook", mock.Anything, &usecase.WebhookInput{RawBody: []byte(body), Signature: "bad", EventID: "evt_2"}).
		Return(domainerrors.ErrWebhookSignatureInvalid)

	rec := api.do(http.MethodPost, "/webhooks/payments", body, map[string]string{
		"X-Razorpay-Signature": "good",
		"X-Razorpay-Event-Id":  "evt_1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/webhooks/payments", body, map[string]string{
		"X-Razorpay-Signature": "bad",
		"X-Razorpay-Event-Id":  "evt_2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "WEBHOOK_SIGNATURE_INVALID", errorCode(t, rec))
}

func TestSubscriptionRoute(t *testing.T) {
	api := newTestAPI(t, 0)
	api.subscriptions.On("GetSubscription", mock.Anything, api.userID).Return(nil, domainerrors.ErrSubscriptionNotFound).Once()

	rec := api.do(http.MethodGet, "/api/v1/subscription", "", bearer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", errorCode(t, rec))

	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	api.subscriptions.On("GetSubscription", mock.Anything, api.userID).
		Return(&entity.Subscription{Plan: "PRO_MONTHLY", Status: entity.SubscriptionStatusActive, ExpiresAt: expires}, nil)

	rec = api.do(http.MethodGet, "/api/v1/subscription", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ACTIVE", decode(t, rec)["data"].(map[string]any)["status"])
}
