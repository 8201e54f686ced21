package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist records revoked token ids until they would have expired anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type redisTokenDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenDenylist stores revoked ids under prefix in Redis.
func NewRedisTokenDenylist(client *redis.Client, prefix string) TokenDenylist {
	return &redisTokenDenylist{client: client, prefix: prefix}
}

func (d *redisTokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+"revoked:"+jti, 1, ttl).Err()
}

func (d *redisTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+"revoked:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
