package impl

import (
	"testing"

	"fintrack/config"
	"fintrack/internal/domain/service"
	"fintrack/internal/infra/auth"
	"fintrack/internal/infra/cache"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testEngine wires every service against in-memory collaborators.
type testEngine struct {
	cfg       *config.Config
	clock     *testClock
	store     *memStore
	cache     *cache.MemoryStore
	codec     service.TokenCodec
	gateway   *mockPaymentGateway
	publisher *mockEventPublisher
	archive   *memArchive

	otp          *otpService
	sessions     *sessionService
	auth         *authService
	payments     *paymentService
	subscription *subscriptionService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	cfg := newTestConfig()
	clock := newTestClock()
	store := newMemStore()
	memCache := cache.NewMemoryStoreWithClock(clock.Now)
	logger := newDiscardLogger()

	codec, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	publisher := &mockEventPublisher{}
	publisher.On("PublishNotification", mock.Anything, mock.Anything).Return(nil).Maybe()

	e := &testEngine{
		cfg:       cfg,
		clock:     clock,
		store:     store,
		cache:     memCache,
		codec:     codec,
		gateway:   &mockPaymentGateway{},
		publisher: publisher,
		archive:   newMemArchive(),
	}

	e.otp = newOTPService(OTPServiceParams{
		OTPRepo: store.NewOTPRepository(),
		Cache:   memCache,
		Hasher:  auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		Config:  cfg,
		Logger:  logger,
	})
	e.otp.now = clock.Now

	e.sessions = newSessionService(SessionServiceParams{
		TxManager:   store,
		SessionRepo: store.NewSessionRepository(),
		UserRepo:    store.NewUserRepository(),
		Tokens:      codec,
		Config:      cfg,
		Logger:      logger,
	})
	e.sessions.now = clock.Now

	e.auth = NewAuthService(AuthServiceParams{
		UserRepo:  store.NewUserRepository(),
		OTP:       e.otp,
		Sessions:  e.sessions,
		Publisher: publisher,
		Logger:    logger,
	}).(*authService)

	e.payments = newPaymentService(PaymentServiceParams{
		TxManager:   store,
		PaymentRepo: store.NewPaymentRepository(),
		WebhookRepo: store.NewWebhookEventRepository(),
		Gateway:     e.gateway,
		Archive:     e.archive,
		Publisher:   publisher,
		Config:      cfg,
		Logger:      logger,
	})
	e.payments.now = clock.Now

	e.subscription = NewSubscriptionService(store.NewSubscriptionRepository(), logger).(*subscriptionService)

	return e
}

// fixCodes makes the OTP generator return codes in order.
func (e *testEngine) fixCodes(codes ...string) {
	next := 0
	e.otp.generateCode = func() (string, error) {
		code := codes[next%len(codes)]
		next++

		return code, nil
	}
}
