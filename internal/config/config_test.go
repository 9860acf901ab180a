package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if cfg.Processing.Workers != defaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Processing.Workers, defaultWorkers)
	}
	if cfg.Backend.Kind != BackendSQLite {
		t.Errorf("Backend.Kind = %q, want sqlite", cfg.Backend.Kind)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.toml")
	body := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[backend]
kind = "Memory"

[watch]
extensions = ["MKV", ".wav"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Backend.Kind != BackendMemory {
		t.Errorf("Backend.Kind = %q, want memory", cfg.Backend.Kind)
	}
	want := []string{".mkv", ".wav"}
	for i, ext := range cfg.Watch.Extensions {
		if ext != want[i] {
			t.Errorf("extension[%d] = %q, want %q", i, ext, want[i])
		}
	}
	if !strings.HasSuffix(cfg.Backend.SQLitePath, "loom.db") {
		t.Errorf("SQLitePath not defaulted under work dir: %q", cfg.Backend.SQLitePath)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend kind", func(c *Config) { c.Backend.Kind = "etcd" }},
		{"zero workers", func(c *Config) { c.Processing.Workers = 0 }},
		{"zero max attempts", func(c *Config) { c.Processing.MaxAttempts = 0 }},
		{"zero lease", func(c *Config) { c.Lock.LeaseSeconds = 0 }},
		{"zero poll", func(c *Config) { c.Lock.PollIntervalMS = 0 }},
		{"zero chunk size", func(c *Config) { c.Chunking.MaxChunkSeconds = 0 }},
		{"boundary fraction too large", func(c *Config) { c.Chunking.BoundaryWindowFraction = 0.7 }},
		{"empty transform command", func(c *Config) { c.Transform.Command = "" }},
		{"empty transform version", func(c *Config) { c.Transform.Version = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"zero namespace ttl", func(c *Config) { c.Cache.NamespaceTTLs["session"] = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNamespaceTTL(t *testing.T) {
	cfg := Default()
	if got := cfg.NamespaceTTL(NamespaceSession); got != 2*time.Hour {
		t.Errorf("session TTL = %v, want 2h", got)
	}
	if got := cfg.NamespaceTTL("unknown"); got != 24*time.Hour {
		t.Errorf("fallback TTL = %v, want 24h", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[chunking]") {
		t.Error("sample config missing [chunking] section")
	}
}
