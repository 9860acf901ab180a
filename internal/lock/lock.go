package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"loom/internal/kv"
	"loom/internal/logging"
)

const keyPrefix = "lock:"

// Coordinator hands out lease-based locks on named resources through the kv
// backend. Guarantees are best-effort: at most one holder on the happy path,
// leases auto-expire so a crashed holder cannot wedge the cluster, and
// callers that exhaust their wait budget are expected to proceed without the
// lock rather than stall.
type Coordinator struct {
	backend kv.Backend
	logger  *slog.Logger
	poll    time.Duration
}

// New creates a coordinator polling at the given interval while contended.
func New(backend kv.Backend, poll time.Duration, logger *slog.Logger) *Coordinator {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Coordinator{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "lock"),
		poll:    poll,
	}
}

// Acquire attempts to take the lock on resource for the lease duration,
// retrying until wait elapses or ctx is done. On success it returns the
// holder token needed for Release; otherwise ok is false. Backend failures
// are treated as acquisition failure, never surfaced as errors.
func (c *Coordinator) Acquire(ctx context.Context, resource string, lease, wait time.Duration) (token string, ok bool) {
	if c.backend == nil {
		return "", false
	}

	token = uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		won, err := c.backend.SetIfAbsent(ctx, keyPrefix+resource, []byte(token), lease)
		if err != nil {
			c.logger.Warn("lock acquire failed, proceeding without lock",
				logging.Args(logging.String("resource", resource), logging.Error(err))...)
			return "", false
		}
		if won {
			c.logger.Debug("lock acquired",
				logging.Args(
					logging.String("resource", resource),
					logging.Duration("lease", lease))...)
			return token, true
		}

		if wait <= 0 || !time.Now().Add(c.poll).Before(deadline) {
			c.logger.Debug("lock wait exhausted",
				logging.Args(
					logging.String("resource", resource),
					logging.Duration("wait", wait))...)
			return "", false
		}

		select {
		case <-time.After(c.poll):
		case <-ctx.Done():
			return "", false
		}
	}
}

// Release frees the lock only when the stored token still matches. A stale
// token, a lease that already expired, or a lock re-acquired by another
// holder all make this a no-op returning false.
func (c *Coordinator) Release(ctx context.Context, resource, token string) bool {
	if c.backend == nil || token == "" {
		return false
	}

	released, err := c.backend.DeleteIfEquals(ctx, keyPrefix+resource, []byte(token))
	if err != nil {
		c.logger.Warn("lock release failed, lease will expire on its own",
			logging.Args(logging.String("resource", resource), logging.Error(err))...)
		return false
	}
	if !released {
		c.logger.Debug("lock release skipped, token no longer current",
			logging.Args(logging.String("resource", resource))...)
	}
	return released
}
