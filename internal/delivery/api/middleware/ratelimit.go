package middleware

import (
	"sync"
	"time"

	"fintrack/config"
	domainerrors "fintrack/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const defaultLimiterIdleTTL = 10 * time.Minute

// RateLimiter enforces per-client throttling keyed by client IP.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil when limiting is disabled; a nil limiter passes everything through.
func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rl := cfg.RateLimit
	if rl == nil || !rl.Enabled || rl.RequestsPerMinute <= 0 {
		return nil
	}

	burst := rl.Burst
	if burst < 1 {
		burst = max(rl.RequestsPerMinute/10, 1)
	}

	idleTTL := rl.IdleTTL
	if idleTTL <= 0 {
		idleTTL = defaultLimiterIdleTTL
	}

	return &RateLimiter{
		limit:   rate.Limit(float64(rl.RequestsPerMinute) / 60.0),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Limit rejects clients over budget with ErrRateLimited.
func (r *RateLimiter) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	if r == nil {
		return next
	}

	return func(c echo.Context) error {
		if !r.allow(c.RealIP()) {
			return domainerrors.ErrRateLimited
		}

		return next(c)
	}
}

func (r *RateLimiter) allow(key string) bool {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[key]
	if !ok {
		r.cleanupLocked(now)
		entry = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

func (r *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range r.clients {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.clients, key)
		}
	}
}
