package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fintrack/config"
	"fintrack/internal/domain/entity"
	"fintrack/internal/domain/repository"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			MaxActiveSessions: 5,
			AccessTokenTTL:    15 * time.Minute,
			RefreshTokenTTL:   7 * 24 * time.Hour,
		},
		OTP: &config.OTPConfig{
			Validity:       5 * time.Minute,
			ResendCooldown: time.Minute,
		},
		Payment: &config.PaymentConfig{
			Plans: []config.PlanConfig{
				{Code: "PRO_MONTHLY", Name: "Pro Monthly", DurationDays: 30, Prices: map[string]int64{"INR": 19900, "USD": 299}},
				{Code: "PRO_YEARLY", Name: "Pro Yearly", DurationDays: 365, Prices: map[string]int64{"INR": 199900}},
			},
		},
	}
	cfg.SecretKey.Access = "test_access_secret_key_very_long_for_testing"
	cfg.SecretKey.Refresh = "test_refresh_secret_key_very_long_for_testing"

	return cfg
}

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// memStore is an in-memory stand-in for the relational store. Transactions
// are serialized and roll back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex

	mu            sync.Mutex
	users         map[uuid.UUID]entity.User
	sessions      []entity.Session
	otps          map[uuid.UUID]entity.OTPRecord
	payments      map[uuid.UUID]entity.Payment
	subscriptions map[uuid.UUID]entity.Subscription
	webhooks      map[string]entity.WebhookEvent
	failures      map[string]error
	upserts       int
	userLocks     int
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uuid.UUID]entity.User),
		otps:          make(map[uuid.UUID]entity.OTPRecord),
		payments:      make(map[uuid.UUID]entity.Payment),
		subscriptions: make(map[uuid.UUID]entity.Subscription),
		webhooks:      make(map[string]entity.WebhookEvent),
		failures:      make(map[string]error),
	}
}

// failOn makes every later call of op return err.
func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[op] = err
}

func (s *memStore) fail(op string) error {
	return s.failures[op]
}

type memSnapshot struct {
	users         map[uuid.UUID]entity.User
	sessions      []entity.Session
	otps          map[uuid.UUID]entity.OTPRecord
	payments      map[uuid.UUID]entity.Payment
	subscriptions map[uuid.UUID]entity.Subscription
	webhooks      map[string]entity.WebhookEvent
	upserts       int
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return memSnapshot{
		users:         copyMap(s.users),
		sessions:      append([]entity.Session(nil), s.sessions...),
		otps:          copyMap(s.otps),
		payments:      copyMap(s.payments),
		subscriptions: copyMap(s.subscriptions),
		webhooks:      copyMap(s.webhooks),
		upserts:       s.upserts,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.sessions = snap.sessions
	s.otps = snap.otps
	s.payments = snap.payments
	s.subscriptions = snap.subscriptions
	s.webhooks = snap.webhooks
	s.upserts = snap.upserts
}

// Execute implements repository.TransactionManager.
func (s *memStore) Execute(_ context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)

		return err
	}

	return nil
}

func (s *memStore) NewUserRepository() repository.UserRepository { return &memUserRepo{s} }

func (s *memStore) NewSessionRepository() repository.SessionRepository { return &memSessionRepo{s} }

func (s *memStore) NewOTPRepository() repository.OTPRepository { return &memOTPRepo{s} }

func (s *memStore) NewPaymentRepository() repository.PaymentRepository { return &memPaymentRepo{s} }

func (s *memStore) NewSubscriptionRepository() repository.SubscriptionRepository {
	return &memSubscriptionRepo{s}
}

func (s *memStore) NewWebhookEventRepository() repository.WebhookEventRepository {
	return &memWebhookRepo{s}
}

func (s *memStore) activeSessions(userID uuid.UUID, now time.Time) []entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []entity.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.IsActive(now) {
			active = append(active, session)
		}
	}

	return active
}

func (s *memStore) payment(id uuid.UUID) entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.payments[id]
}

func (s *memStore) subscriptionOf(userID uuid.UUID) (entity.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[userID]

	return sub, ok
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("users.FindByID"); err != nil {
		return nil, err
	}
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return &user, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			return &user, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	r.s.users[user.ID] = *user

	return nil
}

func (r *memUserRepo) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.EmailVerified = true
	r.s.users[id] = user

	return nil
}

func (r *memUserRepo) LockForSessionIssue(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	r.s.userLocks++

	return nil
}

type memSessionRepo struct{ s *memStore }

func (r *memSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("sessions.Create"); err != nil {
		return err
	}
	r.s.sessions = append(r.s.sessions, *session)

	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, session := range r.s.sessions {
		if session.ID == id {
			return &session, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r *memSessionRepo) FindActiveByHash(_ context.Context, tokenHash string, now time.Time) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, session := range r.s.sessions {
		if session.RefreshTokenHash == tokenHash && session.IsActive(now) {
			return &session, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r *memSessionRepo) CountActiveByUserID(_ context.Context, userID uuid.UUID, now time.Time) (int, error) {
	return len(r.s.activeSessions(userID, now)), nil
}

func (r *memSessionRepo) FindOldestActiveByUserID(_ context.Context, userID uuid.UUID, now time.Time) (*entity.Session, error) {
	active := r.s.activeSessions(userID, now)
	if len(active) == 0 {
		return nil, repository.ErrSessionNotFound
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })

	return &active[0], nil
}

func (r *memSessionRepo) ListActiveByUserID(_ context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error) {
	active := r.s.activeSessions(userID, now)
	out := make([]*entity.Session, 0, len(active))
	for i := len(active) - 1; i >= 0; i-- {
		out = append(out, &active[i])
	}

	return out, nil
}

func (r *memSessionRepo) revokeWhere(match func(entity.Session) bool) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for i := range r.s.sessions {
		if !r.s.sessions[i].IsRevoked && match(r.s.sessions[i]) {
			r.s.sessions[i].IsRevoked = true
			count++
		}
	}

	return count
}

func (r *memSessionRepo) Revoke(_ context.Context, id uuid.UUID) error {
	if r.revokeWhere(func(s entity.Session) bool { return s.ID == id }) == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

func (r *memSessionRepo) RevokeByHash(_ context.Context, tokenHash string) (bool, error) {
	return r.revokeWhere(func(s entity.Session) bool { return s.RefreshTokenHash == tokenHash }) > 0, nil
}

func (r *memSessionRepo) RevokeAllActiveByUserID(_ context.Context, userID uuid.UUID, now time.Time) (int, error) {
	return r.revokeWhere(func(s entity.Session) bool { return s.UserID == userID && s.ExpireAt.After(now) }), nil
}

func (r *memSessionRepo) DeleteDead(_ context.Context, cutoff time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.sessions[:0]
	deleted := 0
	for _, session := range r.s.sessions {
		if (session.IsRevoked && session.CreatedAt.Before(cutoff)) || session.ExpireAt.Before(cutoff) {
			deleted++

			continue
		}
		kept = append(kept, session)
	}
	r.s.sessions = kept

	return deleted, nil
}

type memOTPRepo struct{ s *memStore }

func (r *memOTPRepo) Create(_ context.Context, record *entity.OTPRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("otps.Create"); err != nil {
		return err
	}
	r.s.otps[record.ID] = *record

	return nil
}

func (r *memOTPRepo) FindLatestActive(_ context.Context, userID uuid.UUID, email string, now time.Time) (*entity.OTPRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *entity.OTPRecord
	for _, record := range r.s.otps {
		if record.UserID != userID || record.Email != email || record.Verified || record.IsExpired(now) {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			copied := record
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrOTPNotFound
	}

	return latest, nil
}

func (r *memOTPRepo) MarkVerified(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.otps[id]
	if !ok || record.Verified {
		return false, nil
	}
	record.Verified = true
	r.s.otps[id] = record

	return true, nil
}

func (r *memOTPRepo) DeleteByUserAndEmail(_ context.Context, userID uuid.UUID, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, record := range r.s.otps {
		if record.UserID == userID && record.Email == email {
			delete(r.s.otps, id)
		}
	}

	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("payments.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.payments {
		if existing.ProviderOrderID == payment.ProviderOrderID {
			return repository.ErrPaymentAlreadyExists
		}
	}
	r.s.payments[payment.ID] = *payment

	return nil
}

func (r *memPaymentRepo) FindByProviderOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, payment := range r.s.payments {
		if payment.ProviderOrderID == orderID {
			return &payment, nil
		}
	}

	return nil, repository.ErrPaymentNotFound
}

func (r *memPaymentRepo) MarkCompleted(_ context.Context, settlement *entity.Settlement) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[settlement.PaymentID]
	if !ok || payment.Status != entity.PaymentStatusPending {
		return false, nil
	}
	subscriptionID := settlement.SubscriptionID
	paidAt := settlement.PaidAt
	payment.Status = entity.PaymentStatusCompleted
	payment.ProviderPaymentID = settlement.ProviderPaymentID
	payment.SubscriptionID = &subscriptionID
	payment.PaidAt = &paidAt
	r.s.payments[payment.ID] = payment

	return true, nil
}

func (r *memPaymentRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.payments[id]
	if !ok || payment.Status != entity.PaymentStatusPending {
		return false, nil
	}
	payment.Status = entity.PaymentStatusFailed
	payment.FailureReason = reason
	r.s.payments[id] = payment

	return true, nil
}

type memSubscriptionRepo struct{ s *memStore }

func (r *memSubscriptionRepo) Upsert(_ context.Context, subscription *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.subscriptions[subscription.UserID]; ok {
		subscription.ID = existing.ID
		subscription.CreatedAt = existing.CreatedAt
	} else if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	r.s.subscriptions[subscription.UserID] = *subscription
	r.s.upserts++

	return nil
}

func (r *memSubscriptionRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	sub, ok := r.s.subscriptionOf(userID)
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}

	return &sub, nil
}

func (r *memSubscriptionRepo) ExpireDue(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for userID, sub := range r.s.subscriptions {
		if sub.Status == entity.SubscriptionStatusActive && !sub.ExpiresAt.After(now) {
			sub.Status = entity.SubscriptionStatusExpired
			r.s.subscriptions[userID] = sub
			count++
		}
	}

	return count, nil
}

type memWebhookRepo struct{ s *memStore }

func (r *memWebhookRepo) Record(_ context.Context, event *entity.WebhookEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := event.Provider + "|" + event.EventID
	if _, ok := r.s.webhooks[key]; ok {
		return repository.ErrWebhookEventDuplicate
	}
	r.s.webhooks[key] = *event

	return nil
}

func (r *memWebhookRepo) MarkProcessed(_ context.Context, id uuid.UUID, processingError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for key, event := range r.s.webhooks {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
			r.s.webhooks[key] = event

			return nil
		}
	}

	return errors.New("webhook event not found")
}

// mockPaymentGateway is a testify mock of service.PaymentGateway.
type mockPaymentGateway struct {
	mock.Mock
}

func (m *mockPaymentGateway) Name() string {
	return "razorpay"
}

func (m *mockPaymentGateway) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.ProviderOrder, error) {
	args := m.Called(ctx, input)
	order, _ := args.Get(0).(*service.ProviderOrder)

	return order, args.Error(1)
}

func (m *mockPaymentGateway) VerifyPayment(proof service.PaymentProof) error {
	return m.Called(proof).Error(0)
}

func (m *mockPaymentGateway) HandleWebhook(rawBody []byte, signature string) (*service.WebhookEvent, error) {
	args := m.Called(rawBody, signature)
	event, _ := args.Get(0).(*service.WebhookEvent)

	return event, args.Error(1)
}

// mockEventPublisher is a testify mock of service.EventPublisher.
type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishNotification(ctx context.Context, event *service.NotificationEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventPublisher) Close() error {
	return nil
}

// eventsOfKind returns the published events of kind in call order.
func (m *mockEventPublisher) eventsOfKind(kind service.NotificationKind) []*service.NotificationEvent {
	var events []*service.NotificationEvent
	for _, call := range m.Calls {
		if call.Method != "PublishNotification" {
			continue
		}
		if event, ok := call.Arguments.Get(1).(*service.NotificationEvent); ok && event.Kind == kind {
			events = append(events, event)
		}
	}

	return events
}

type memArchive struct {
	mu     sync.Mutex
	bodies map[string][]byte
}

func newMemArchive() *memArchive {
	return &memArchive{bodies: make(map[string][]byte)}
}

func (a *memArchive) Store(_ context.Context, eventID string, rawBody []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bodies[eventID] = append([]byte(nil), rawBody...)

	return nil
}

func (a *memArchive) Close() error {
	return nil
}
