package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLock(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateTransform(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackend() error {
	switch c.Backend.Kind {
	case BackendRedis:
		if strings.TrimSpace(c.Backend.RedisAddr) == "" {
			return errors.New("backend.redis_addr must be set when backend.kind is redis")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Backend.SQLitePath) == "" {
			return errors.New("backend.sqlite_path must be set when backend.kind is sqlite")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("backend.kind must be one of redis, sqlite, memory (got %q)", c.Backend.Kind)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.DefaultTTL <= 0 {
		return errors.New("cache.default_ttl must be positive")
	}
	for namespace, seconds := range c.Cache.NamespaceTTLs {
		if strings.TrimSpace(namespace) == "" {
			return errors.New("cache.namespace_ttls contains an empty namespace")
		}
		if seconds <= 0 {
			return fmt.Errorf("cache.namespace_ttls[%q] must be positive", namespace)
		}
	}
	if c.Cache.SweepInterval < 0 {
		return errors.New("cache.sweep_interval must not be negative")
	}
	return nil
}

func (c *Config) validateLock() error {
	if c.Lock.LeaseSeconds <= 0 {
		return errors.New("lock.lease_seconds must be positive")
	}
	if c.Lock.WaitSeconds < 0 {
		return errors.New("lock.wait_seconds must not be negative")
	}
	if c.Lock.PollIntervalMS <= 0 {
		return errors.New("lock.poll_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.MaxChunkSeconds <= 0 {
		return errors.New("chunking.max_chunk_seconds must be positive")
	}
	if c.Chunking.BoundaryWindowFraction < 0 || c.Chunking.BoundaryWindowFraction > 0.5 {
		return errors.New("chunking.boundary_window_fraction must be between 0 and 0.5")
	}
	if c.Chunking.ProbeWindowMS <= 0 {
		return errors.New("chunking.probe_window_ms must be positive")
	}
	if c.Chunking.QuietThreshold < 0 || c.Chunking.QuietThreshold > 1 {
		return errors.New("chunking.quiet_threshold must be between 0 and 1")
	}
	if c.Chunking.AudioStream < 0 {
		return errors.New("chunking.audio_stream must not be negative")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.Workers <= 0 {
		return errors.New("processing.workers must be positive")
	}
	if c.Processing.MaxAttempts <= 0 {
		return errors.New("processing.max_attempts must be positive")
	}
	if c.Processing.RetryDelaySeconds < 0 {
		return errors.New("processing.retry_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateTransform() error {
	if strings.TrimSpace(c.Transform.Command) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/loom/config.toml"
		}
		return fmt.Errorf("transform.command is required. Edit %s (create with 'loom config init')", defaultPath)
	}
	if strings.TrimSpace(c.Transform.Version) == "" {
		return errors.New("transform.version must be set; it is part of the cache fingerprint")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
