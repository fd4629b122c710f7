package impl

import (
	"context"
	"log/slog"
	"time"

	"fintrack/config"
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

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager         repository.TransactionManager
	sessionRepo       repository.SessionRepository
	userRepo          repository.UserRepository
	tokens            service.TokenCodec
	maxActiveSessions int
	now               func() time.Time
	logger            *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	SessionRepo repository.SessionRepository
	UserRepo    repository.UserRepository
	Tokens      service.TokenCodec
	Config      *config.Config
	Logger      *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return newSessionService(params)
}

func newSessionService(params SessionServiceParams) *sessionService {
	return &sessionService{
		txManager:         params.TxManager,
		sessionRepo:       params.SessionRepo,
		userRepo:          params.UserRepo,
		tokens:            params.Tokens,
		maxActiveSessions: params.Config.Auth.MaxActiveSessions,
		now:               time.Now,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

// IssueSessionAndTokens signs a token pair and stores the refresh session.
// The user row lock serializes concurrent logins so the cap holds.
func (srv *sessionService) IssueSessionAndTokens(ctx context.Context, userID uuid.UUID, role entity.Role) (*entity.TokenPair, error) {
	refreshToken, err := srv.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue refresh token")
	}

	accessToken, err := srv.tokens.IssueAccessToken(userID, role.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	now := srv.now()
	session := &entity.Session{
		ID:               uuid.New(),
		UserID:           userID,
		RefreshTokenHash: srv.tokens.HashToken(refreshToken),
		ExpireAt:         now.Add(srv.tokens.RefreshTokenTTL()),
		CreatedAt:        now,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		sessionRepo := repoFactory.NewSessionRepository()

		if err := userRepo.LockForSessionIssue(ctx, userID); err != nil {
			return errors.Wrap(err, "failed to lock user for session issue")
		}

		if err := srv.evictOverCap(ctx, sessionRepo, userID, now); err != nil {
			return err
		}

		if err := sessionRepo.Create(ctx, session); err != nil {
			return errors.Wrap(err, "failed to create session")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to issue session", slog.Any("userID", userID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to issue session")
	}

	srv.log(ctx).Debug("Session issued", slog.Any("userID", userID), slog.Any("sessionID", session.ID))

	return &entity.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// evictOverCap revokes oldest sessions until one more fits under the cap.
func (srv *sessionService) evictOverCap(ctx context.Context, sessionRepo repository.SessionRepository, userID uuid.UUID, now time.Time) error {
	if srv.maxActiveSessions <= 0 {
		return nil
	}

	active, err := sessionRepo.CountActiveByUserID(ctx, userID, now)
	if err != nil {
		return errors.Wrap(err, "failed to count active sessions")
	}

	for ; active >= srv.maxActiveSessions; active-- {
		oldest, err := sessionRepo.FindOldestActiveByUserID(ctx, userID, now)
		if err != nil {
			return errors.Wrap(err, "failed to find oldest session")
		}

		if err := sessionRepo.Revoke(ctx, oldest.ID); err != nil {
			return errors.Wrap(err, "failed to revoke oldest session")
		}

		srv.log(ctx).Info("Evicted oldest session", slog.Any("userID", userID), slog.Any("sessionID", oldest.ID))
	}

	return nil
}

// Refresh verifies the refresh token, requires a live session for it and
// signs an access token with the owner's current role.
func (srv *sessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := srv.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	session, err := srv.sessionRepo.FindActiveByHash(ctx, srv.tokens.HashToken(refreshToken), srv.now())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", domainerrors.ErrSessionNotFound
		}

		return "", errors.Wrap(err, "failed to find session")
	}

	if session.UserID != claims.UserID {
		srv.log(ctx).Warn("Refresh token subject does not own session", slog.Any("sessionID", session.ID))

		return "", domainerrors.ErrSessionNotFound
	}

	user, err := srv.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", domainerrors.ErrSessionNotFound
		}

		return "", errors.Wrap(err, "failed to load session owner")
	}
	if !user.IsActive() {
		return "", domainerrors.ErrSessionNotFound
	}

	accessToken, err := srv.tokens.IssueAccessToken(user.ID, user.Role.String())
	if err != nil {
		return "", errors.Wrap(err, "failed to issue access token")
	}

	return accessToken, nil
}

// Logout revokes the session stored under the hash of refreshToken. Stale,
// expired or unknown tokens report revoked=false rather than an error.
func (srv *sessionService) Logout(ctx context.Context, refreshToken string) (bool, error) {
	revoked, err := srv.sessionRepo.RevokeByHash(ctx, srv.tokens.HashToken(refreshToken))
	if err != nil {
		return false, errors.Wrap(err, "failed to revoke session")
	}

	srv.log(ctx).Debug("Logout", slog.Bool("revoked", revoked))

	return revoked, nil
}

// LogoutAll revokes every active session of the user.
func (srv *sessionService) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := srv.sessionRepo.RevokeAllActiveByUserID(ctx, userID, srv.now())
	if err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("userID", userID), slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to revoke all sessions")
	}

	srv.log(ctx).Info("Revoked all sessions", slog.Any("userID", userID), slog.Int("count", count))

	return count, nil
}

// ListSessions returns the user's active sessions, newest first.
func (srv *sessionService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	sessions, err := srv.sessionRepo.ListActiveByUserID(ctx, userID, srv.now())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	return sessions, nil
}

// RevokeSession revokes one of the user's own sessions.
func (srv *sessionService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := srv.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domainerrors.ErrSessionUnknown
		}

		return errors.Wrap(err, "failed to find session")
	}

	if session.UserID != userID {
		return domainerrors.ErrSessionOwnership
	}

	if !session.IsActive(srv.now()) {
		return nil
	}

	if err := srv.sessionRepo.Revoke(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return errors.Wrap(err, "failed to revoke session")
	}

	srv.log(ctx).Info("Revoked session", slog.Any("userID", userID), slog.Any("sessionID", sessionID))

	return nil
}

// CleanupDead removes sessions that expired or were revoked before the cutoff.
func (srv *sessionService) CleanupDead(ctx context.Context, before time.Time) (int, error) {
	deleted, err := srv.sessionRepo.DeleteDead(ctx, before)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete dead sessions")
	}

	srv.log(ctx).Info("Cleaned up dead sessions", slog.Int("deleted", deleted))

	return deleted, nil
}
