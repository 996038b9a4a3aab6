package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a shared counter store for multi-instance deployments.
// INCR and EXPIRE run in one pipeline so concurrent callers on the same key
// never lose increments.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := "ratelimit:" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	count := incr.Val()
	remaining, err := ttl.Result()
	if err != nil || remaining <= 0 {
		// First request in the window, or a counter left without expiry.
		remaining = window
		if expErr := s.client.PExpire(ctx, redisKey, window).Err(); expErr != nil {
			return 0, time.Time{}, fmt.Errorf("ratelimit expire: %w", expErr)
		}
	}
	return count, time.Now().UTC().Add(remaining), nil
}
