// Package cache provides the CacheStore implementations: Redis in deployed
// environments and an in-process map when no Redis address is configured.
package cache

import (
	"context"
	"log/slog"

	"fintrack/config"
	"fintrack/internal/domain/lifecycle"
	"fintrack/internal/domain/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Params defines the dependencies for the cache store
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewCacheStore selects the store from the redis section. An unreachable
// Redis at start is logged, not fatal: every cache read has a durable fallback.
func NewCacheStore(params Params) service.CacheStore {
	redisCfg := params.Config.Redis
	if redisCfg == nil || redisCfg.Addr == "" {
		params.Logger.Warn("Redis address not configured, using in-process cache store")

		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := client.Ping(ctx).Err(); err != nil {
				params.Logger.Warn("Redis ping failed, OTP lookups will fall back to Postgres",
					slog.String("addr", redisCfg.Addr),
					slog.Any("error", err),
				)
			}

			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return NewRedisStore(client, params.Config.Upstream.CacheTimeout)
}
