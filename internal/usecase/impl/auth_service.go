package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "fintrack/internal/delivery/context"
	"fintrack/internal/domain/entity"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"
	"fintrack/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface on top of the OTP and session managers.
type authService struct {
	userRepo repository.UserRepository
	otp      usecase.OTPUsecase
	sessions usecase.SessionUsecase
	notifier *notificationDispatcher
	logger   *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	UserRepo  repository.UserRepository
	OTP       usecase.OTPUsecase
	Sessions  usecase.SessionUsecase
	Publisher service.EventPublisher
	Logger    *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		userRepo: params.UserRepo,
		otp:      params.OTP,
		sessions: params.Sessions,
		notifier: newNotificationDispatcher(params.Publisher, params.Logger),
		logger:   params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

// RequestOTP resolves or creates the identity for the email and sends it a fresh code.
func (srv *authService) RequestOTP(ctx context.Context, input *usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("email is required")
	}

	user, err := srv.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		srv.log(ctx).Warn("OTP requested for disabled identity", slog.Any("userID", user.ID), slog.String("status", string(user.Status)))

		return nil, domainerrors.ErrIdentityDisabled
	}

	issue, err := srv.otp.RequestOTP(ctx, user.ID, email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to request otp")
	}

	srv.notifier.enqueue(ctx, &service.NotificationEvent{
		Kind:   service.NotificationOTPRequested,
		UserID: user.ID.String(),
		Email:  email,
		Payload: map[string]string{
			"code":       issue.Code,
			"expires_at": issue.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})

	return &usecase.RequestOTPOutput{
		ExpiresAt:   issue.ExpiresAt,
		ResendAfter: issue.ResendAfter,
	}, nil
}

func (srv *authService) findOrCreateUser(ctx context.Context, email string) (*entity.User, error) {
	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to find user")
	}

	user = &entity.User{
		ID:     uuid.New(),
		Email:  email,
		Role:   entity.RoleUser,
		Status: entity.UserStatusActive,
	}

	err = srv.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrUserAlreadyExists) {
		// A concurrent first request created the identity.
		existing, findErr := srv.userRepo.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, errors.Wrap(findErr, "failed to load concurrently created user")
		}

		return existing, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	srv.log(ctx).Info("Created identity for first login", slog.Any("userID", user.ID))

	return user, nil
}

// VerifyOTP consumes the code, marks the email verified and opens a session.
func (srv *authService) VerifyOTP(ctx context.Context, input *usecase.VerifyOTPInput) (*usecase.LoginOutput, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Code == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("email and code are required")
	}

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrOTPExpired
		}

		return nil, errors.Wrap(err, "failed to find user")
	}
	if !user.IsActive() {
		return nil, domainerrors.ErrIdentityDisabled
	}

	if err := srv.otp.VerifyOTP(ctx, user.ID, email, input.Code); err != nil {
		srv.log(ctx).Debug("OTP verification failed", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, err
	}

	if !user.EmailVerified {
		if err := srv.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, errors.Wrap(err, "failed to mark email verified")
		}
		user.EmailVerified = true
	}

	pair, err := srv.sessions.IssueSessionAndTokens(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("User logged in", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

func (srv *authService) Refresh(ctx context.Context, refreshToken string) (*usecase.RefreshOutput, error) {
	accessToken, err := srv.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return &usecase.RefreshOutput{AccessToken: accessToken}, nil
}

func (srv *authService) Logout(ctx context.Context, refreshToken string) (*usecase.LogoutOutput, error) {
	revoked, err := srv.sessions.Logout(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return &usecase.LogoutOutput{Revoked: revoked}, nil
}

func (srv *authService) LogoutAll(ctx context.Context, userID uuid.UUID) (*usecase.LogoutAllOutput, error) {
	count, err := srv.sessions.LogoutAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &usecase.LogoutAllOutput{Count: count}, nil
}
