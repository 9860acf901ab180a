package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Backend selects and configures the shared cache/lock backend.
type Backend struct {
	// Kind is one of "redis", "sqlite", or "memory".
	Kind          string `toml:"kind"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	SQLitePath    string `toml:"sqlite_path"`
}

// Cache contains configuration for the content-addressable result cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
	// NamespaceTTLs maps cache namespaces to TTLs in seconds. Namespaces
	// without an entry fall back to DefaultTTL.
	NamespaceTTLs map[string]int `toml:"namespace_ttls"`
	DefaultTTL    int            `toml:"default_ttl"`
	// SweepInterval is how often the sqlite backend purges expired rows,
	// in seconds. Ignored by redis, which expires keys natively.
	SweepInterval int `toml:"sweep_interval"`
}

// Lock contains configuration for the distributed computation lock.
type Lock struct {
	LeaseSeconds   int `toml:"lease_seconds"`
	WaitSeconds    int `toml:"wait_seconds"`
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// Chunking contains configuration for splitting long inputs.
type Chunking struct {
	MaxChunkSeconds int `toml:"max_chunk_seconds"`
	// BoundaryWindowFraction is the trailing fraction of each non-final
	// chunk scanned for a quiet boundary point.
	BoundaryWindowFraction float64 `toml:"boundary_window_fraction"`
	ProbeWindowMS          int     `toml:"probe_window_ms"`
	// QuietThreshold is the RMS amplitude (0..1) below which a probe
	// window counts as silence. Tuning is domain dependent; the default
	// suits wideband speech.
	QuietThreshold float64 `toml:"quiet_threshold"`
	AudioStream    int     `toml:"audio_stream"`
}

// Processing contains configuration for parallel chunk execution.
type Processing struct {
	Workers           int `toml:"workers"`
	MaxAttempts       int `toml:"max_attempts"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
}

// Transform contains configuration for the external model command.
type Transform struct {
	Command   string   `toml:"command"`
	Model     string   `toml:"model"`
	Version   string   `toml:"version"`
	Language  string   `toml:"language"`
	ExtraArgs []string `toml:"extra_args"`
}

// Watch contains configuration for the ingest directory watcher.
type Watch struct {
	IngestDir     string   `toml:"ingest_dir"`
	SettleSeconds int      `toml:"settle_seconds"`
	Extensions    []string `toml:"extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for loom.
//
// Configuration sections by subsystem:
//   - Paths: working and log directories
//   - Backend: cache/lock key-value backend selection
//   - Cache: result cache namespaces and TTLs
//   - Lock: lease and wait budgets for the computation lock
//   - Chunking: chunk sizing and silence-boundary tuning
//   - Processing: worker pool and per-chunk retry policy
//   - Transform: the external model command invoked per chunk
//   - Watch: ingest directory monitoring
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Backend    Backend    `toml:"backend"`
	Cache      Cache      `toml:"cache"`
	Lock       Lock       `toml:"lock"`
	Chunking   Chunking   `toml:"chunking"`
	Processing Processing `toml:"processing"`
	Transform  Transform  `toml:"transform"`
	Watch      Watch      `toml:"watch"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	if c.Backend.Kind == "" {
		c.Backend.Kind = BackendSQLite
	}
	if strings.TrimSpace(c.Backend.SQLitePath) == "" {
		c.Backend.SQLitePath = filepath.Join(c.Paths.WorkDir, "loom.db")
	} else if c.Backend.SQLitePath, err = expandPath(c.Backend.SQLitePath); err != nil {
		return fmt.Errorf("backend.sqlite_path: %w", err)
	}

	if strings.TrimSpace(c.Watch.IngestDir) != "" {
		if c.Watch.IngestDir, err = expandPath(c.Watch.IngestDir); err != nil {
			return fmt.Errorf("watch.ingest_dir: %w", err)
		}
	}
	for i, ext := range c.Watch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Watch.Extensions[i] = ext
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}

// EnsureDirectories creates required directories for operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.LogDir}
	if strings.TrimSpace(c.Watch.IngestDir) != "" {
		dirs = append(dirs, c.Watch.IngestDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// NamespaceTTL returns the configured TTL for a cache namespace, falling back
// to the default TTL when the namespace has no explicit entry.
func (c *Config) NamespaceTTL(namespace string) time.Duration {
	if seconds, ok := c.Cache.NamespaceTTLs[namespace]; ok && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return time.Duration(c.Cache.DefaultTTL) * time.Second
}

// SweepInterval returns the configured period between expired-row sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepInterval) * time.Second
}

// LockLease returns the configured lock lease duration.
func (c *Config) LockLease() time.Duration {
	return time.Duration(c.Lock.LeaseSeconds) * time.Second
}

// LockWait returns the configured lock acquisition wait budget.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Lock.WaitSeconds) * time.Second
}

// LockPoll returns the configured lock polling interval.
func (c *Config) LockPoll() time.Duration {
	return time.Duration(c.Lock.PollIntervalMS) * time.Millisecond
}

// RetryDelay returns the configured inter-attempt delay for chunk retries.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Processing.RetryDelaySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
