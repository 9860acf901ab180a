package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"loom/internal/cache"
	"loom/internal/chunking"
	"loom/internal/config"
	"loom/internal/engine"
	"loom/internal/kv"
	"loom/internal/lock"
	"loom/internal/logging"
	"loom/internal/media"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the wired processing stack for one command invocation.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend kv.Backend
	cache   *cache.Cache
	locks   *lock.Coordinator
	engine  *engine.Engine
}

// buildRuntime opens the backend and assembles the engine with its
// collaborators from the loaded configuration.
func (c *commandContext) buildRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := kv.Open(cfg)
	if err != nil {
		return nil, err
	}

	resultCache := cache.New(backend, cfg, logger)
	// Rows left expired since the last run are purged once up front; the
	// watch command additionally runs the periodic sweeper.
	resultCache.Sweep(context.Background())
	locks := lock.New(backend, cfg.LockPoll(), logger)
	detector := &chunking.RMSDetector{
		FFmpegBinary: cfg.FFmpegBinary(),
		AudioStream:  cfg.Chunking.AudioStream,
		Threshold:    cfg.Chunking.QuietThreshold,
	}
	planner := chunking.NewPlanner(cfg, detector, logger)
	transformer := media.NewCommandTransformer(media.CommandConfig{
		Command:   cfg.Transform.Command,
		Model:     cfg.Transform.Model,
		Language:  cfg.Transform.Language,
		ExtraArgs: cfg.Transform.ExtraArgs,
	})

	eng, err := engine.New(cfg, resultCache, locks, planner, transformer, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		cache:   resultCache,
		locks:   locks,
		engine:  eng,
	}, nil
}

func (r *runtime) Close() {
	if r.backend != nil {
		r.backend.Close()
	}
}
