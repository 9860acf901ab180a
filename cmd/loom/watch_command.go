package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"loom/internal/fingerprint"
	"loom/internal/jobs"
	"loom/internal/logging"
	"loom/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process files as they land in the ingest directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			lockPath := filepath.Join(rt.cfg.Paths.LogDir, "loom-watch.lock")
			instanceLock := flock.New(lockPath)
			locked, err := instanceLock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !locked {
				return errors.New("another loom watch instance is already running")
			}
			defer instanceLock.Unlock() //nolint:errcheck

			if err := rt.engine.CleanWorkDir(); err != nil {
				rt.logger.Warn("work dir cleanup failed", logging.Args(logging.Error(err))...)
			}

			params := fingerprint.Params{
				Model:           rt.cfg.Transform.Model,
				Version:         rt.cfg.Transform.Version,
				Language:        rt.cfg.Transform.Language,
				MaxChunkSeconds: rt.cfg.Chunking.MaxChunkSeconds,
				Workers:         rt.cfg.Processing.Workers,
			}
			handler := func(ctx context.Context, path string) {
				// One correlation identifier per ingest event so every
				// log line for the pickup can be tied back together.
				ctx = jobs.WithRequestID(ctx, uuid.NewString())
				if _, err := rt.engine.Process(ctx, path, params); err != nil {
					logging.WithContext(ctx, rt.logger).Error("ingest processing failed",
						logging.Args(
							logging.String("file", filepath.Base(path)),
							logging.Error(err))...)
				}
			}

			watcher, err := watch.New(rt.cfg, handler, rt.logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go rt.cache.RunSweeper(runCtx, rt.cfg.SweepInterval())

			err = watcher.Run(runCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}
