package config

// Backend kinds accepted by backend.kind.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Well-known cache namespaces. Callers may introduce additional namespaces;
// these two ship with TTL defaults.
const (
	NamespaceSession  = "session"
	NamespaceArtifact = "artifact"
)

const (
	defaultWorkDir   = "~/.local/share/loom/work"
	defaultLogDir    = "~/.local/share/loom/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultRedisAddr = "127.0.0.1:6379"

	defaultSessionTTLSeconds  = 2 * 60 * 60
	defaultArtifactTTLSeconds = 24 * 60 * 60
	defaultSweepSeconds       = 10 * 60

	defaultLockLeaseSeconds = 600
	defaultLockWaitSeconds  = 300
	defaultLockPollMS       = 100

	defaultMaxChunkSeconds        = 300
	defaultBoundaryWindowFraction = 0.2
	defaultProbeWindowMS          = 100
	defaultQuietThreshold         = 0.015

	defaultWorkers           = 4
	defaultMaxAttempts       = 3
	defaultRetryDelaySeconds = 1

	defaultSettleSeconds = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Backend: Backend{
			Kind:      BackendSQLite,
			RedisAddr: defaultRedisAddr,
		},
		Cache: Cache{
			Enabled: true,
			NamespaceTTLs: map[string]int{
				NamespaceSession:  defaultSessionTTLSeconds,
				NamespaceArtifact: defaultArtifactTTLSeconds,
			},
			DefaultTTL:    defaultArtifactTTLSeconds,
			SweepInterval: defaultSweepSeconds,
		},
		Lock: Lock{
			LeaseSeconds:   defaultLockLeaseSeconds,
			WaitSeconds:    defaultLockWaitSeconds,
			PollIntervalMS: defaultLockPollMS,
		},
		Chunking: Chunking{
			MaxChunkSeconds:        defaultMaxChunkSeconds,
			BoundaryWindowFraction: defaultBoundaryWindowFraction,
			ProbeWindowMS:          defaultProbeWindowMS,
			QuietThreshold:         defaultQuietThreshold,
		},
		Processing: Processing{
			Workers:           defaultWorkers,
			MaxAttempts:       defaultMaxAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
		},
		Transform: Transform{
			Command: "whisperx",
			Model:   "small",
			Version: "1",
		},
		Watch: Watch{
			SettleSeconds: defaultSettleSeconds,
			Extensions:    []string{".mkv", ".mp4", ".wav", ".flac", ".m4a"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
