package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"loom/internal/chunking"
	"loom/internal/invoker"
	"loom/internal/logging"
	"loom/internal/media"
)

// Dispatcher fans a chunk plan out over a bounded worker pool and merges the
// per-chunk outcomes back into original input order.
type Dispatcher struct {
	workers int
	logger  *slog.Logger
}

// New creates a dispatcher running at most workers chunks concurrently.
// Values below one fall back to serial execution.
func New(workers int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Run invokes inv for every chunk and returns the results sorted by chunk
// start time, with each result's segment timestamps shifted into full-input
// coordinates. A single chunk runs synchronously on the calling goroutine.
// Cancellation stops new submissions; chunks never handed to a worker come
// back degraded with the context error.
func (d *Dispatcher) Run(ctx context.Context, chunks []chunking.Chunk, inv *invoker.Invoker) ([]invoker.ChunkResult, error) {
	if inv == nil {
		return nil, fmt.Errorf("dispatch: invoker required")
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	if len(chunks) == 1 {
		result := inv.Invoke(ctx, chunks[0])
		shiftSegments(&result)
		return []invoker.ChunkResult{result}, nil
	}

	results := make([]invoker.ChunkResult, len(chunks))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	d.logger.Debug("dispatching chunks",
		logging.Args(
			logging.Int("chunk_count", len(chunks)),
			logging.Int("workers", d.workers))...)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			results[i] = invoker.ChunkResult{Chunk: chunk, Err: err.Error()}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, chunk chunking.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()
			result := inv.Invoke(ctx, chunk)
			shiftSegments(&result)
			results[slot] = result
		}(i, chunk)
	}
	wg.Wait()

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Chunk.Start < results[b].Chunk.Start
	})
	return results, nil
}

// shiftSegments moves a chunk's segment timestamps from chunk-local to
// full-input coordinates.
func shiftSegments(result *invoker.ChunkResult) {
	if result.Payload == nil || result.Chunk.Start == 0 {
		return
	}
	for i := range result.Payload.Segments {
		result.Payload.Segments[i].Start += result.Chunk.Start
		result.Payload.Segments[i].End += result.Chunk.Start
	}
}

// Merge flattens ordered chunk results into one segment stream and reports
// which chunk indexes came back degraded. Results must already be in start
// order, as returned by Run.
func Merge(results []invoker.ChunkResult) ([]media.Segment, []int) {
	var segments []media.Segment
	var failed []int
	for _, result := range results {
		if result.Degraded() {
			failed = append(failed, result.Chunk.Index)
			continue
		}
		segments = append(segments, result.Payload.Segments...)
	}
	return segments, failed
}
