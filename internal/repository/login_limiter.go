package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter bounds attempts per key inside a fixed window.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type redisLoginLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLoginLimiter allows limit attempts per key every window.
func NewRedisLoginLimiter(client *redis.Client, prefix string, limit int, window time.Duration) LoginLimiter {
	return &redisLoginLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *redisLoginLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + "ratelimit:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}

	if incr.Val() > l.limit {
		retry := ttl.Val()
		if retry < 0 {
			retry = l.window
		}
		return false, retry, nil
	}
	return true, 0, nil
}
