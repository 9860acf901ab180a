package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It selects the in-memory backend, applies any provided options, and
// never touches the user's real directories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Backend.Kind = config.BackendMemory
	cfgVal.Backend.SQLitePath = filepath.Join(base, "kv.db")
	cfgVal.Cache.Enabled = true
	cfgVal.Watch.IngestDir = filepath.Join(base, "ingest")
	cfgVal.Transform.Command = "true"
	cfgVal.Processing.RetryDelaySeconds = 0
	cfgVal.Lock.PollIntervalMS = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithBackendKind overrides the key-value backend selection.
func WithBackendKind(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.Kind = kind
	}
}

// WithWorkers overrides the chunk worker pool size.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.Workers = workers
	}
}

// WithMaxAttempts overrides the per-chunk retry budget.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.MaxAttempts = attempts
	}
}

// WithLockBudget overrides the lock lease and wait windows, in seconds.
func WithLockBudget(leaseSeconds, waitSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lock.LeaseSeconds = leaseSeconds
		b.cfg.Lock.WaitSeconds = waitSeconds
	}
}

// WithCacheDisabled turns the result cache off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}
