package impl

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
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

const (
	otpCodeMin   = 100000
	otpCodeRange = 900000
)

// otpService implements the OTPUsecase interface. The relational store holds
// the authoritative copy; the cache is a fast path that may be missing at any time.
type otpService struct {
	otpRepo        repository.OTPRepository
	cache          service.CacheStore
	hasher         service.SecretHasher
	validity       time.Duration
	resendCooldown time.Duration
	generateCode   func() (string, error)
	now            func() time.Time
	logger         *slog.Logger
}

// OTPServiceParams holds dependencies for OTPService, injected by Fx.
type OTPServiceParams struct {
	fx.In

	OTPRepo repository.OTPRepository
	Cache   service.CacheStore
	Hasher  service.SecretHasher
	Config  *config.Config
	Logger  *slog.Logger
}

// NewOTPService is the constructor for otpService.
func NewOTPService(params OTPServiceParams) usecase.OTPUsecase {
	return newOTPService(params)
}

func newOTPService(params OTPServiceParams) *otpService {
	return &otpService{
		otpRepo:        params.OTPRepo,
		cache:          params.Cache,
		hasher:         params.Hasher,
		validity:       params.Config.OTP.Validity,
		resendCooldown: params.Config.OTP.ResendCooldown,
		generateCode:   generateOTPCode,
		now:            time.Now,
		logger:         params.Logger,
	}
}

func (srv *otpService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

// otpCacheKey is the cache copy of the live code of the pair.
func otpCacheKey(userID uuid.UUID, email string) string {
	return fmt.Sprintf("otp:%s:%s", userID, email)
}

// otpThrottleKey is present while the pair is inside its resend cooldown.
func otpThrottleKey(userID uuid.UUID, email string) string {
	return fmt.Sprintf("otp_throttle:%s:%s", userID, email)
}

// generateOTPCode draws a six digit code uniformly from [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpCodeRange))
	if err != nil {
		return "", errors.Wrap(err, "failed to read random source")
	}

	return fmt.Sprintf("%06d", n.Int64()+otpCodeMin), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestOTP replaces the live code of the pair with a fresh one.
func (srv *otpService) RequestOTP(ctx context.Context, userID uuid.UUID, email string) (*entity.OTPIssue, error) {
	email = normalizeEmail(email)
	throttleKey := otpThrottleKey(userID, email)

	throttled, err := srv.cache.Exists(ctx, throttleKey)
	if err != nil {
		srv.log(ctx).Warn("OTP throttle check unavailable", slog.Any("userID", userID), slog.Any("error", err))
	}
	if throttled {
		return nil, domainerrors.ErrOTPRateLimited
	}

	if err := srv.clear(ctx, userID, email); err != nil {
		return nil, err
	}

	code, err := srv.generateCode()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate otp")
	}

	hash, err := srv.hasher.Hash(code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash otp")
	}

	now := srv.now()
	record := &entity.OTPRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		OTPHash:   hash,
		ExpiresAt: now.Add(srv.validity),
		CreatedAt: now,
	}

	if err := srv.otpRepo.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to persist otp")
	}

	if payload, err := json.Marshal(record); err == nil {
		if err := srv.cache.Set(ctx, otpCacheKey(userID, email), payload, srv.validity); err != nil {
			srv.log(ctx).Warn("Failed to cache otp", slog.Any("userID", userID), slog.Any("error", err))
		}
	}

	if err := srv.cache.Set(ctx, throttleKey, []byte("1"), srv.resendCooldown); err != nil {
		srv.log(ctx).Warn("Failed to set otp throttle", slog.Any("userID", userID), slog.Any("error", err))
	}

	srv.log(ctx).Debug("OTP issued", slog.Any("userID", userID), slog.Time("expiresAt", record.ExpiresAt))

	return &entity.OTPIssue{
		Code:        code,
		ExpiresAt:   record.ExpiresAt,
		ResendAfter: now.Add(srv.resendCooldown),
	}, nil
}

// VerifyOTP checks candidate against the live code and consumes it on success.
// The code is consumed at most once even under concurrent verification.
func (srv *otpService) VerifyOTP(ctx context.Context, userID uuid.UUID, email, candidate string) error {
	email = normalizeEmail(email)
	now := srv.now()

	if record := srv.cachedRecord(ctx, userID, email); record != nil {
		if err := srv.verifyCached(ctx, record, candidate, now); err != nil {
			return err
		}
	} else if err := srv.verifyDurable(ctx, userID, email, candidate, now); err != nil {
		return err
	}

	if _, err := srv.cache.Del(ctx, otpThrottleKey(userID, email)); err != nil {
		srv.log(ctx).Warn("Failed to clear otp throttle", slog.Any("userID", userID), slog.Any("error", err))
	}

	srv.log(ctx).Debug("OTP verified", slog.Any("userID", userID))

	return nil
}

// ClearOTP drops the pair from both stores.
func (srv *otpService) ClearOTP(ctx context.Context, userID uuid.UUID, email string) error {
	email = normalizeEmail(email)
	if err := srv.clear(ctx, userID, email); err != nil {
		return err
	}

	if _, err := srv.cache.Del(ctx, otpThrottleKey(userID, email)); err != nil {
		srv.log(ctx).Warn("Failed to clear otp throttle", slog.Any("userID", userID), slog.Any("error", err))
	}

	return nil
}

// clear leaves the throttle marker in place so a new request cannot skip the cooldown.
func (srv *otpService) clear(ctx context.Context, userID uuid.UUID, email string) error {
	if _, err := srv.cache.Del(ctx, otpCacheKey(userID, email)); err != nil {
		srv.log(ctx).Warn("Failed to clear cached otp", slog.Any("userID", userID), slog.Any("error", err))
	}

	if err := srv.otpRepo.DeleteByUserAndEmail(ctx, userID, email); err != nil {
		return errors.Wrap(err, "failed to clear otp")
	}

	return nil
}

func (srv *otpService) cachedRecord(ctx context.Context, userID uuid.UUID, email string) *entity.OTPRecord {
	payload, err := srv.cache.Get(ctx, otpCacheKey(userID, email))
	if err != nil {
		if !errors.Is(err, service.ErrCacheMiss) {
			srv.log(ctx).Warn("OTP cache read failed, using durable copy", slog.Any("userID", userID), slog.Any("error", err))
		}

		return nil
	}

	var record entity.OTPRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		srv.log(ctx).Warn("Discarding undecodable cached otp", slog.Any("userID", userID), slog.Any("error", err))

		return nil
	}

	return &record
}

func (srv *otpService) verifyCached(ctx context.Context, record *entity.OTPRecord, candidate string, now time.Time) error {
	if record.IsExpired(now) {
		return srv.verifyBehindCache(ctx, record, candidate, now, domainerrors.ErrOTPExpired)
	}
	if !srv.hasher.Check(candidate, record.OTPHash) {
		return srv.verifyBehindCache(ctx, record, candidate, now, domainerrors.ErrOTPInvalid)
	}

	deleted, delErr := srv.cache.Del(ctx, otpCacheKey(record.UserID, record.Email))
	if delErr != nil {
		srv.log(ctx).Warn("Failed to delete cached otp", slog.Any("userID", record.UserID), slog.Any("error", delErr))
	}

	// The conditional durable update is the claim. The cache delete count only
	// decides when the store cannot be reached.
	claimed, err := srv.otpRepo.MarkVerified(ctx, record.ID)
	switch {
	case err == nil && claimed:
		return nil
	case err == nil:
		return domainerrors.ErrOTPExpired
	case delErr == nil && deleted > 0:
		srv.log(ctx).Warn("Failed to mark otp verified", slog.Any("otpID", record.ID), slog.Any("error", err))

		return nil
	case delErr == nil:
		return domainerrors.ErrOTPExpired
	default:
		return errors.Wrap(err, "failed to claim otp")
	}
}

// verifyBehindCache runs when the cached record rejects candidate. A reissue
// whose cache writes failed leaves the previous code cached, so a newer durable
// record matching candidate still wins and the stale entry is dropped.
func (srv *otpService) verifyBehindCache(ctx context.Context, cached *entity.OTPRecord, candidate string, now time.Time, rejection error) error {
	durable, err := srv.otpRepo.FindLatestActive(ctx, cached.UserID, cached.Email, now)
	if err != nil {
		if !errors.Is(err, repository.ErrOTPNotFound) {
			srv.log(ctx).Warn("Failed to load durable otp behind cache", slog.Any("userID", cached.UserID), slog.Any("error", err))
		}

		return rejection
	}
	if durable.ID == cached.ID || !srv.hasher.Check(candidate, durable.OTPHash) {
		return rejection
	}

	if _, err := srv.cache.Del(ctx, otpCacheKey(cached.UserID, cached.Email)); err != nil {
		srv.log(ctx).Warn("Failed to drop stale cached otp", slog.Any("userID", cached.UserID), slog.Any("error", err))
	}

	return srv.claimDurable(ctx, durable.ID)
}

func (srv *otpService) verifyDurable(ctx context.Context, userID uuid.UUID, email, candidate string, now time.Time) error {
	record, err := srv.otpRepo.FindLatestActive(ctx, userID, email, now)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return domainerrors.ErrOTPExpired
		}

		return errors.Wrap(err, "failed to load otp")
	}

	if !srv.hasher.Check(candidate, record.OTPHash) {
		return domainerrors.ErrOTPInvalid
	}

	return srv.claimDurable(ctx, record.ID)
}

func (srv *otpService) claimDurable(ctx context.Context, id uuid.UUID) error {
	claimed, err := srv.otpRepo.MarkVerified(ctx, id)
	if err != nil {
		return errors.Wrap(err, "failed to claim otp")
	}
	if !claimed {
		return domainerrors.ErrOTPExpired
	}

	return nil
}
