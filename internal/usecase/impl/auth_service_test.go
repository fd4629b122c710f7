package impl

import (
	"context"
	"sync"
	"testing"

	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/service"
	"fintrack/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthService_LoginScenario(t *testing.T) {
	e := newTestEngine(t)
	e.fixCodes("483920")
	ctx := context.Background()

	_, err := e.auth.RequestOTP(ctx, &usecase.RequestOTPInput{Email: "u1@x.com"})
	require.NoError(t, err)

	_, err = e.auth.VerifyOTP(ctx, &usecase.VerifyOTPInput{Email: "u1@x.com", Code: "000000"})
	assert.ErrorIs(t, err, domainerrors.ErrOTPInvalid)

	out, err := e.auth.VerifyOTP(ctx, &usecase.VerifyOTPInput{Email: "u1@x.com", Code: "483920"})
	require.NoError(t, err)
	assert.True(t, out.User.EmailVerified)
	assert.Equal(t, entity.RoleUser, out.User.Role)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)

	_, err = e.auth.VerifyOTP(ctx, &usecase.VerifyOTPInput{Email: "u1@x.com", Code: "483920"})
	assert.ErrorIs(t, err, domainerrors.ErrOTPExpired)

	stored, err := e.store.NewUserRepository().FindByEmail(ctx, "u1@x.com")
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
}

func TestAuthService_RequestOTPCreatesIdentityOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.auth.RequestOTP(ctx, &usecase.RequestOTPInput{Email: "  New@X.com"})
	require.NoError(t, err)

	user, err := e.store.NewUserRepository().FindByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusActive, user.Status)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.False(t, user.EmailVerified)

	_, err = e.auth.RequestOTP(ctx, &usecase.RequestOTPInput{Email: "new@x.com"})
	assert.ErrorIs(t, err, domainerrors.ErrOTPRateLimited)
	assert.Len(t, e.store.users, 1)
}

func TestAuthService_RequestOTPPublishesCode(t *testing.T) {
	e := newTestEngine(t)
	e.fixCodes("483920")

	out, err := e.auth.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@x.com"})
	require.NoError(t, err)
	assert.False(t, out.ExpiresAt.IsZero())

	events := e.publisher.eventsOfKind(service.NotificationOTPRequested)
	require.Len(t, events, 1)
	assert.Equal(t, "u1@x.com", events[0].Email)
	assert.Equal(t, "483920", events[0].Payload["code"])
}

func TestAuthService_PublishFailureDoesNotFailRequest(t *testing.T) {
	e := newTestEngine(t)
	publisher := &mockEventPublisher{}
	publisher.On("PublishNotification", mock.Anything, mock.Anything).Return(assert.AnError)
	e.auth.notifier = newNotificationDispatcher(publisher, newDiscardLogger())

	_, err := e.auth.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@x.com"})
	assert.NoError(t, err)
	publisher.AssertNumberOfCalls(t, "PublishNotification", 1)
}

func TestAuthService_DisabledIdentity(t *testing.T) {
	for _, status := range []entity.UserStatus{entity.UserStatusSuspended, entity.UserStatusInactive} {
		t.Run(string(status), func(t *testing.T) {
			e := newTestEngine(t)
			e.seedUser(t, "u1@x.com", entity.RoleUser, status)

			_, err := e.auth.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@x.com"})
			assert.ErrorIs(t, err, domainerrors.ErrIdentityDisabled)
			assert.Equal(t, domainerrors.KindForbidden, domainerrors.KindOf(err))
		})
	}
}

func TestAuthService_VerifyUnknownEmailIsNoOracle(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.auth.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{Email: "ghost@x.com", Code: "123456"})
	assert.ErrorIs(t, err, domainerrors.ErrOTPExpired)
}

func TestAuthService_Validation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.auth.RequestOTP(ctx, &usecase.RequestOTPInput{Email: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = e.auth.VerifyOTP(ctx, &usecase.VerifyOTPInput{Email: "u1@x.com"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestAuthService_RefreshLogoutAll(t *testing.T) {
	e := newTestEngine(t)
	e.fixCodes("483920")
	ctx := context.Background()

	_, err := e.auth.RequestOTP(ctx, &usecase.RequestOTPInput{Email: "u1@x.com"})
	require.NoError(t, err)
	login, err := e.auth.VerifyOTP(ctx, &usecase.VerifyOTPInput{Email: "u1@x.com", Code: "483920"})
	require.NoError(t, err)

	refreshed, err := e.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	all, err := e.auth.LogoutAll(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Count)

	out, err := e.auth.Logout(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.False(t, out.Revoked)

	_, err = e.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)
}

func TestAuthService_ConcurrentFirstRequestsShareIdentity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.auth.findOrCreateUser(ctx, "race@x.com")
		}()
	}
	wg.Wait()

	assert.Len(t, e.store.users, 1)
}
