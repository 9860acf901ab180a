package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"loom/internal/cache"
	"loom/internal/chunking"
	"loom/internal/config"
	"loom/internal/dispatch"
	"loom/internal/fingerprint"
	"loom/internal/invoker"
	"loom/internal/jobs"
	"loom/internal/lock"
	"loom/internal/logging"
	"loom/internal/media"
)

// DurationProbe reports an input's playable duration in seconds.
type DurationProbe func(ctx context.Context, source string) (float64, error)

// Extractor materializes one chunk's audio into workDir and returns the
// path handed to the model transformer.
type Extractor func(ctx context.Context, chunk chunking.Chunk, workDir string) (string, error)

// Stats is a point-in-time snapshot of engine and cache activity.
type Stats struct {
	JobsStarted   int64
	JobsCompleted int64
	JobsFailed    int64
	ModelCalls    int64
	LockTimeouts  int64
	Cache         cache.Stats
}

// Engine coordinates one processing job end to end: fingerprint the input,
// consult the cache, serialize equivalent work behind the computation lock,
// and fan chunked model calls out over the worker pool.
type Engine struct {
	cfg         *config.Config
	cache       *cache.Cache
	locks       *lock.Coordinator
	planner     *chunking.Planner
	transformer media.Transformer
	logger      *slog.Logger

	probe   DurationProbe
	extract Extractor

	jobsStarted   atomic.Int64
	jobsCompleted atomic.Int64
	jobsFailed    atomic.Int64
	modelCalls    atomic.Int64
	lockTimeouts  atomic.Int64
}

// New assembles an engine from its collaborators. cache, locks, and planner
// must be non-nil; the transformer is what every chunk is handed to.
func New(cfg *config.Config, resultCache *cache.Cache, locks *lock.Coordinator, planner *chunking.Planner, transformer media.Transformer, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, Wrap(ErrConfiguration, "engine", "new", "config required", nil)
	}
	if resultCache == nil || locks == nil || planner == nil {
		return nil, Wrap(ErrConfiguration, "engine", "new", "cache, lock coordinator, and planner required", nil)
	}
	if transformer == nil {
		return nil, Wrap(ErrConfiguration, "engine", "new", "transformer required", nil)
	}
	eng := &Engine{
		cfg:         cfg,
		cache:       resultCache,
		locks:       locks,
		planner:     planner,
		transformer: transformer,
		logger:      logging.NewComponentLogger(logger, "engine"),
	}
	eng.probe = eng.probeWithFFprobe
	eng.extract = eng.extractWithFFmpeg
	return eng, nil
}

// WithDurationProbe replaces the ffprobe-backed duration lookup (for testing).
func (e *Engine) WithDurationProbe(probe DurationProbe) {
	if probe != nil {
		e.probe = probe
	}
}

// WithExtractor replaces the ffmpeg-backed chunk extraction (for testing).
func (e *Engine) WithExtractor(extract Extractor) {
	if extract != nil {
		e.extract = extract
	}
}

// Process runs one job for the given source and parameters. It returns the
// merged result, possibly flagged partial when some chunks degraded, or an
// error when nothing usable was produced. Identical source bytes and
// parameters hit the cache and return without any model call.
func (e *Engine) Process(ctx context.Context, source string, params fingerprint.Params) (*jobs.Result, error) {
	started := time.Now()
	jobID := uuid.NewString()
	ctx = jobs.WithJobID(ctx, jobID)
	e.jobsStarted.Add(1)
	e.transition(jobID, jobs.StatusPending)

	if params.Namespace == "" {
		params.Namespace = config.NamespaceArtifact
	}
	if params.MaxChunkSeconds <= 0 {
		params.MaxChunkSeconds = e.cfg.Chunking.MaxChunkSeconds
	}

	fp, err := fingerprint.File(source, params)
	if err != nil {
		return nil, e.fail(jobID, Wrap(ErrValidation, "engine", "fingerprint", source, err))
	}
	ctx = jobs.WithFingerprint(ctx, fp.Short())

	e.transition(jobID, jobs.StatusCacheCheck)
	if result, ok := e.cachedResult(ctx, params.Namespace, fp); ok {
		e.jobsCompleted.Add(1)
		e.transition(jobID, jobs.StatusDone)
		return result, nil
	}

	e.transition(jobID, jobs.StatusLockWait)
	resource := fp.Key(params.Namespace)
	token, acquired := e.locks.Acquire(ctx, resource, e.cfg.LockLease(), e.cfg.LockWait())
	if acquired {
		defer e.locks.Release(context.WithoutCancel(ctx), resource, token)
	} else {
		e.lockTimeouts.Add(1)
		// Another holder may have finished while we waited.
		if result, ok := e.cachedResult(ctx, params.Namespace, fp); ok {
			e.jobsCompleted.Add(1)
			e.transition(jobID, jobs.StatusDone)
			return result, nil
		}
		e.logger.Warn("lock wait exhausted, computing without lock",
			logging.Args(
				logging.String(logging.FieldJobID, jobID),
				logging.String(logging.FieldFingerprint, fp.Short()))...)
	}

	result, err := e.compute(ctx, jobID, source, fp, params)
	if err != nil {
		return nil, e.fail(jobID, err)
	}
	result.ElapsedMS = time.Since(started).Milliseconds()

	e.transition(jobID, jobs.StatusCacheWrite)
	if !result.Partial {
		if payload, err := json.Marshal(result); err == nil {
			e.cache.Put(ctx, params.Namespace, fp, payload)
		}
	}

	e.jobsCompleted.Add(1)
	e.transition(jobID, jobs.StatusDone)
	return result, nil
}

// compute plans chunks and fans the model out over them. Degraded chunks
// produce a partial result; zero successful chunks is a hard failure.
func (e *Engine) compute(ctx context.Context, jobID, source string, fp fingerprint.Fingerprint, params fingerprint.Params) (*jobs.Result, error) {
	e.transition(jobID, jobs.StatusCompute)

	durationSec, err := e.probe(ctx, source)
	if err != nil {
		return nil, Wrap(ErrPlanning, "engine", "probe duration", source, err)
	}

	chunks, err := e.planner.Plan(ctx, source, durationSec, float64(params.MaxChunkSeconds))
	if err != nil {
		return nil, Wrap(ErrPlanning, "engine", "plan chunks", source, err)
	}

	workers := params.Workers
	if workers <= 0 {
		workers = e.cfg.Processing.Workers
	}
	inv := invoker.New(e.chunkTransform(params), e.cfg.Processing.MaxAttempts, e.cfg.RetryDelay(), e.cfg.Paths.WorkDir, e.logger)
	results, err := dispatch.New(workers, e.logger).Run(ctx, chunks, inv)
	if err != nil {
		return nil, Wrap(ErrJobFailed, "engine", "dispatch", source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, Wrap(ErrJobFailed, "engine", "dispatch", "cancelled", err)
	}

	segments, failedChunks := dispatch.Merge(results)
	if len(failedChunks) == len(chunks) {
		return nil, Wrap(ErrJobFailed, "engine", "compute", fmt.Sprintf("all %d chunks failed", len(chunks)), nil)
	}
	if len(failedChunks) > 0 {
		e.logger.Warn("job completed with degraded chunks",
			logging.Args(
				logging.String(logging.FieldJobID, jobID),
				logging.Int("chunk_count", len(chunks)),
				logging.Any("failed_chunks", failedChunks))...)
	}

	return &jobs.Result{
		JobID:        jobID,
		Source:       source,
		Namespace:    params.Namespace,
		Fingerprint:  fp.String(),
		Model:        params.Model,
		Text:         jobs.JoinText(segments),
		Segments:     segments,
		Partial:      len(failedChunks) > 0,
		ChunkCount:   len(chunks),
		FailedChunks: failedChunks,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// chunkTransform binds extraction and the model call into the per-chunk
// function handed to the invoker.
func (e *Engine) chunkTransform(params fingerprint.Params) invoker.TransformFunc {
	return func(ctx context.Context, chunk chunking.Chunk, workDir string) (*media.RawResult, error) {
		audioPath, err := e.extract(ctx, chunk, workDir)
		if err != nil {
			return nil, fmt.Errorf("extract chunk %d: %w", chunk.Index, err)
		}
		e.modelCalls.Add(1)
		return e.transformer.Transform(ctx, media.Request{
			Source:   audioPath,
			WorkDir:  workDir,
			Language: params.Language,
		})
	}
}

// cachedResult loads and decodes a cached payload. A corrupt payload is
// deleted and treated as a miss.
func (e *Engine) cachedResult(ctx context.Context, namespace string, fp fingerprint.Fingerprint) (*jobs.Result, bool) {
	payload, ok := e.cache.Get(ctx, namespace, fp)
	if !ok {
		return nil, false
	}
	var result jobs.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		e.logger.Warn("discarding corrupt cache payload",
			logging.Args(
				logging.String(logging.FieldNamespace, namespace),
				logging.String(logging.FieldFingerprint, fp.Short()),
				logging.Error(err))...)
		e.cache.Delete(ctx, namespace, fp)
		return nil, false
	}
	result.FromCache = true
	return &result, true
}

func (e *Engine) probeWithFFprobe(ctx context.Context, source string) (float64, error) {
	probe, err := media.Inspect(ctx, e.cfg.FFprobeBinary(), source)
	if err != nil {
		return 0, err
	}
	return probe.DurationSeconds()
}

func (e *Engine) extractWithFFmpeg(ctx context.Context, chunk chunking.Chunk, workDir string) (string, error) {
	dest := filepath.Join(workDir, fmt.Sprintf("chunk-%03d.wav", chunk.Index))
	if err := media.ExtractSegment(ctx, e.cfg.FFmpegBinary(), chunk.Source, e.cfg.Chunking.AudioStream, chunk.Start, chunk.Duration(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (e *Engine) fail(jobID string, err error) error {
	e.jobsFailed.Add(1)
	e.transition(jobID, jobs.StatusFailed)
	e.logger.Error("job failed",
		logging.Args(
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))...)
	return err
}

// transition records a lifecycle step. Only terminal states log at info;
// the intermediate hops are debug noise in steady operation.
func (e *Engine) transition(jobID string, status jobs.Status) {
	level := slog.LevelDebug
	if status.IsTerminal() {
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, "job status",
		logging.Args(
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldStage, string(status)))...)
}

// Stats returns a snapshot of engine counters plus cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		JobsStarted:   e.jobsStarted.Load(),
		JobsCompleted: e.jobsCompleted.Load(),
		JobsFailed:    e.jobsFailed.Load(),
		ModelCalls:    e.modelCalls.Load(),
		LockTimeouts:  e.lockTimeouts.Load(),
		Cache:         e.cache.Stats(),
	}
}

// CleanWorkDir removes leftover chunk scratch directories from crashed runs.
func (e *Engine) CleanWorkDir() error {
	entries, err := os.ReadDir(e.cfg.Paths.WorkDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clean work dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if len(entry.Name()) >= 6 && entry.Name()[:6] == "chunk-" {
			if err := os.RemoveAll(filepath.Join(e.cfg.Paths.WorkDir, entry.Name())); err != nil {
				return fmt.Errorf("clean work dir: %w", err)
			}
		}
	}
	return nil
}
