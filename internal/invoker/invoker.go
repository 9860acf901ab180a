package invoker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loom/internal/chunking"
	"loom/internal/logging"
	"loom/internal/media"
)

// TransformFunc runs the model over one chunk. workDir is a scratch
// directory exclusive to this attempt's chunk; the invoker removes it after
// the call completes.
type TransformFunc func(ctx context.Context, chunk chunking.Chunk, workDir string) (*media.RawResult, error)

// ChunkResult is the outcome of invoking the model for one chunk, after all
// retries. Exactly one of Payload and Err is meaningful.
type ChunkResult struct {
	Chunk    chunking.Chunk
	Payload  *media.RawResult
	Err      string
	Attempts int
}

// Degraded reports whether the chunk exhausted its retries without a result.
func (r ChunkResult) Degraded() bool {
	return r.Payload == nil
}

// Invoker wraps a TransformFunc with bounded retries and scratch directory
// management. A failed attempt never aborts the run; the chunk is retried up
// to the attempt budget and then reported as degraded.
type Invoker struct {
	fn          TransformFunc
	maxAttempts int
	retryDelay  time.Duration
	workRoot    string
	logger      *slog.Logger
}

// New creates an invoker. maxAttempts is the total number of tries per
// chunk, including the first; values below one are treated as one.
func New(fn TransformFunc, maxAttempts int, retryDelay time.Duration, workRoot string, logger *slog.Logger) *Invoker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if retryDelay < 0 {
		retryDelay = 0
	}
	return &Invoker{
		fn:          fn,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		workRoot:    workRoot,
		logger:      logging.NewComponentLogger(logger, "invoker"),
	}
}

// Invoke runs the model for one chunk, retrying transient failures. The
// returned ChunkResult always carries the chunk and the attempt count; it is
// degraded rather than an error when every attempt failed, so the caller can
// assemble partial output. Context cancellation stops retrying immediately.
func (inv *Invoker) Invoke(ctx context.Context, chunk chunking.Chunk) ChunkResult {
	result := ChunkResult{Chunk: chunk}

	var lastErr error
	for attempt := 1; attempt <= inv.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		result.Attempts = attempt

		payload, err := inv.attempt(ctx, chunk, attempt)
		if err == nil {
			result.Payload = payload
			if attempt > 1 {
				inv.logger.Info("chunk recovered after retry",
					logging.Args(
						logging.Int(logging.FieldChunkIndex, chunk.Index),
						logging.Int("attempt", attempt))...)
			}
			return result
		}
		lastErr = err
		inv.logger.Warn("chunk attempt failed",
			logging.Args(
				logging.Int(logging.FieldChunkIndex, chunk.Index),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", inv.maxAttempts),
				logging.Error(err))...)

		if attempt < inv.maxAttempts && inv.retryDelay > 0 {
			timer := time.NewTimer(inv.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				result.Err = ctx.Err().Error()
				return result
			case <-timer.C:
			}
		}
	}

	if lastErr != nil {
		result.Err = lastErr.Error()
	} else {
		result.Err = "no attempts made"
	}
	inv.logger.Error("chunk failed permanently",
		logging.Args(
			logging.Int(logging.FieldChunkIndex, chunk.Index),
			logging.Int("attempts", result.Attempts),
			logging.String("error", result.Err))...)
	return result
}

// attempt runs a single try in its own scratch directory and recovers
// panics from the transform into ordinary errors.
func (inv *Invoker) attempt(ctx context.Context, chunk chunking.Chunk, attempt int) (payload *media.RawResult, err error) {
	workDir, err := os.MkdirTemp(inv.workRoot, fmt.Sprintf("chunk-%03d-", chunk.Index))
	if err != nil {
		return nil, fmt.Errorf("create chunk work dir: %w", err)
	}
	defer func() {
		if removeErr := os.RemoveAll(workDir); removeErr != nil {
			inv.logger.Warn("failed to remove chunk work dir",
				logging.Args(
					logging.String("directory", workDir),
					logging.Error(removeErr))...)
		}
		if recovered := recover(); recovered != nil {
			payload = nil
			err = fmt.Errorf("transform panicked on attempt %d: %v", attempt, recovered)
		}
	}()

	payload, err = inv.fn(ctx, chunk, workDir)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("transform returned no payload")
	}
	return payload, nil
}
