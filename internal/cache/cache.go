package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"loom/internal/config"
	"loom/internal/fingerprint"
	"loom/internal/kv"
	"loom/internal/logging"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	// Swept counts expired rows removed by Sweep.
	Swept int64 `json:"swept"`
	// Errors counts backend failures absorbed as misses or dropped writes.
	Errors int64 `json:"errors"`
}

// Cache is the namespaced, TTL-based content-addressable result cache.
//
// Every backend failure degrades silently: reads become misses, writes
// become no-ops. The caller computed (or is about to compute) the payload
// either way, so cache trouble must never fail a job.
type Cache struct {
	backend kv.Backend
	cfg     *config.Config
	logger  *slog.Logger
	enabled bool

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	swept   atomic.Int64
	errors  atomic.Int64
}

// New creates a cache over the given backend. A nil backend or disabled
// config yields a cache where every read misses and every write is a no-op.
func New(backend kv.Backend, cfg *config.Config, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "cache")
	enabled := backend != nil && cfg != nil && cfg.Cache.Enabled
	if !enabled {
		logger.Debug("cache disabled, operating in pass-through mode")
	}
	return &Cache{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		enabled: enabled,
	}
}

// Get returns the cached payload for the fingerprint, or found=false on a
// miss. Backend errors are absorbed and reported as misses.
func (c *Cache) Get(ctx context.Context, namespace string, fp fingerprint.Fingerprint) ([]byte, bool) {
	if !c.enabled {
		c.misses.Add(1)
		return nil, false
	}

	payload, found, err := c.backend.Get(ctx, fp.Key(namespace))
	if err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		c.logger.Warn("cache read failed, treating as miss",
			logging.Args(
				logging.String(logging.FieldNamespace, namespace),
				logging.String(logging.FieldFingerprint, fp.Short()),
				logging.Error(err))...)
		return nil, false
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	c.logger.Debug("cache hit",
		logging.Args(
			logging.String(logging.FieldNamespace, namespace),
			logging.String(logging.FieldFingerprint, fp.Short()),
			logging.Int("payload_bytes", len(payload)))...)
	return payload, true
}

// Put stores a payload under the namespace's default TTL. Write failures are
// logged and dropped; the caller already holds the payload.
func (c *Cache) Put(ctx context.Context, namespace string, fp fingerprint.Fingerprint, payload []byte) {
	c.PutTTL(ctx, namespace, fp, payload, c.ttlFor(namespace))
}

// PutTTL stores a payload with an explicit TTL.
func (c *Cache) PutTTL(ctx context.Context, namespace string, fp fingerprint.Fingerprint, payload []byte, ttl time.Duration) {
	if !c.enabled || ttl <= 0 {
		return
	}

	if err := c.backend.SetWithTTL(ctx, fp.Key(namespace), payload, ttl); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache write failed, result not cached",
			logging.Args(
				logging.String(logging.FieldNamespace, namespace),
				logging.String(logging.FieldFingerprint, fp.Short()),
				logging.Duration("ttl", ttl),
				logging.Error(err))...)
		return
	}

	c.sets.Add(1)
	c.logger.Debug("cache write",
		logging.Args(
			logging.String(logging.FieldNamespace, namespace),
			logging.String(logging.FieldFingerprint, fp.Short()),
			logging.Int("payload_bytes", len(payload)),
			logging.Duration("ttl", ttl))...)
}

// Delete removes an entry. Used by operational tooling, not by the engine.
func (c *Cache) Delete(ctx context.Context, namespace string, fp fingerprint.Fingerprint) {
	if !c.enabled {
		return
	}
	if err := c.backend.Delete(ctx, fp.Key(namespace)); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache delete failed",
			logging.Args(
				logging.String(logging.FieldNamespace, namespace),
				logging.String(logging.FieldFingerprint, fp.Short()),
				logging.Error(err))...)
		return
	}
	c.deletes.Add(1)
}

// Sweep purges expired rows when the backend supports it and returns the
// number removed. Backends that expire keys natively report zero.
func (c *Cache) Sweep(ctx context.Context) int64 {
	if !c.enabled {
		return 0
	}
	sweeper, ok := c.backend.(kv.Sweeper)
	if !ok {
		return 0
	}
	removed, err := sweeper.SweepExpired(ctx)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache sweep failed", logging.Args(logging.Error(err))...)
		return 0
	}
	if removed > 0 {
		c.swept.Add(removed)
		c.logger.Debug("cache sweep removed expired entries",
			logging.Args(logging.Int("removed", int(removed)))...)
	}
	return removed
}

// RunSweeper sweeps on the interval until ctx ends. A non-positive interval
// disables the loop. Intended to run as a goroutine in long-lived processes;
// one-shot commands sweep once at startup instead.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Swept:   c.swept.Load(),
		Errors:  c.errors.Load(),
	}
}

func (c *Cache) ttlFor(namespace string) time.Duration {
	if c.cfg == nil {
		return 0
	}
	return c.cfg.NamespaceTTL(namespace)
}
