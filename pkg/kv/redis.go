package kv

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/angelmondragon/storefront-cart/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StorageKey(key string) string
	Close() error
}

// Redis stores values under the sf:storage namespace. Each call is bounded
// by opTimeout so a stalled server cannot hang a UI handler.
type Redis struct {
	client    redisStore
	opTimeout time.Duration
}

func NewRedis(client redisStore, opTimeout time.Duration) *Redis {
	return &Redis{client: client, opTimeout: opTimeout}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	value, err := r.client.Get(ctx, r.client.StorageKey(key))
	if errors.Is(err, pkgredis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.client.Set(ctx, r.client.StorageKey(key), value, 0)
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.client.Del(ctx, r.client.StorageKey(key))
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opTimeout)
}
