package kv

import (
	"context"
	"fmt"
	"time"

	"loom/internal/config"
)

// Backend is the key-value service shared by the cache and the lock
// coordinator. Implementations must provide the two atomic primitives the
// lock depends on: set-if-absent-with-expiry and compare-and-delete.
type Backend interface {
	// Get returns the value for key, reporting absence without error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetWithTTL stores value under key with the given time to live.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent atomically stores value under key with a TTL only when
	// the key does not exist (or has expired). Returns true when the
	// caller won the write.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key unconditionally. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// DeleteIfEquals atomically removes key only when its current value
	// equals expect. Returns true when the key was removed.
	DeleteIfEquals(ctx context.Context, key string, expect []byte) (bool, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by backends whose expired rows linger until
// purged. Redis expires keys natively and does not implement it.
type Sweeper interface {
	// SweepExpired removes every expired row and reports how many.
	SweepExpired(ctx context.Context) (int64, error)
}

// Open constructs the backend selected by configuration.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendRedis:
		return OpenRedis(cfg.Backend.RedisAddr, cfg.Backend.RedisPassword, cfg.Backend.RedisDB)
	case config.BackendSQLite:
		return OpenSQLite(cfg.Backend.SQLitePath)
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("open backend: unknown kind %q", cfg.Backend.Kind)
	}
}
