package cache

import (
	"context"
	"time"

	"fintrack/internal/domain/service"
	"fintrack/internal/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements service.CacheStore backed by Redis.
type RedisStore struct {
	client  redis.UniversalClient
	timeout time.Duration
}

var _ service.CacheStore = (*RedisStore)(nil)

// NewRedisStore wraps client. Each call is bounded by timeout when positive.
func NewRedisStore(client redis.UniversalClient, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, s.timeout)
}

// Get returns service.ErrCacheMiss when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, service.ErrCacheMiss
		}

		return nil, errors.Wrapf(err, "redis get %s", key)
	}

	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}

	return nil
}

// Del is a single DEL. Its reply counts the keys that existed, so concurrent
// callers deleting the same key learn which one removed it.
func (s *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis del")
	}

	return removed, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis exists %s", key)
	}

	return n > 0, nil
}
