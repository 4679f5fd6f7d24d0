// Package kv provides the client-local key-value storage that holds the guest
// cart. Every driver exposes the same small synchronous surface; callers are
// expected to tolerate failures from any of them.
package kv

import (
	"context"
	"fmt"
	"io"

	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-cart/pkg/redis"
)

// Storage is a string key-value store. Get reports ok=false for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store is a Storage that owns resources.
type Store interface {
	Storage
	io.Closer
}

// Open builds the storage driver selected in cfg.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch cfg.Storage.NormalizedDriver() {
	case config.StorageDriverMemory:
		return NewMemory(), nil
	case config.StorageDriverSQLite:
		store, err := OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDriverRedis:
		client, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, cfg.Storage.OpTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
