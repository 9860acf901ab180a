package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"

	"loom/internal/config"
	"loom/internal/logging"
)

// Handler receives the path of a settled ingest file.
type Handler func(ctx context.Context, path string)

type pendingFile struct {
	lastEvent time.Time
	size      int64
}

// Watcher monitors the ingest directory and hands files to the handler once
// they stop growing. Partially copied files are held back until their size
// is stable across the settle window.
type Watcher struct {
	cfg     *config.Config
	handler Handler
	logger  *slog.Logger

	fsw     *fsnotify.Watcher
	pending map[string]*pendingFile
	settle  time.Duration
	tick    time.Duration
}

// New creates a watcher over cfg.Watch.IngestDir. The directory must exist.
func New(cfg *config.Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil || strings.TrimSpace(cfg.Watch.IngestDir) == "" {
		return nil, fmt.Errorf("watch: ingest directory not configured")
	}
	if handler == nil {
		return nil, fmt.Errorf("watch: handler required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(cfg.Watch.IngestDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Watch.IngestDir, err)
	}

	settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
	tick := settle / 4
	if tick < 200*time.Millisecond {
		tick = 200 * time.Millisecond
	}
	return &Watcher{
		cfg:     cfg,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "watch"),
		fsw:     fsw,
		pending: make(map[string]*pendingFile),
		settle:  settle,
		tick:    tick,
	}, nil
}

// Run blocks processing filesystem events until ctx is cancelled. Files
// already present in the ingest directory are picked up on the first sweep.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.scanExisting(); err != nil {
		return err
	}
	w.logger.Info("watching ingest directory",
		logging.Args(
			logging.String("directory", w.cfg.Watch.IngestDir),
			logging.Duration("settle", w.settle))...)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.track(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(w.pending, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Args(logging.Error(err))...)
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// scanExisting queues files that were already in the directory before the
// watcher started.
func (w *Watcher) scanExisting() error {
	entries, err := os.ReadDir(w.cfg.Watch.IngestDir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.cfg.Watch.IngestDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.track(filepath.Join(w.cfg.Watch.IngestDir, entry.Name()))
	}
	return nil
}

func (w *Watcher) track(path string) {
	if !w.matches(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	w.pending[path] = &pendingFile{lastEvent: time.Now(), size: info.Size()}
}

// sweep promotes pending files whose size has held steady for the settle
// window. A file still growing gets its clock reset.
func (w *Watcher) sweep(ctx context.Context) {
	now := time.Now()
	for path, state := range w.pending {
		if now.Sub(state.lastEvent) < w.settle {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != state.size {
			state.size = info.Size()
			state.lastEvent = now
			continue
		}
		delete(w.pending, path)
		w.logger.Info("ingest file settled",
			logging.Args(
				logging.String("file", filepath.Base(path)),
				logging.String("size", humanize.Bytes(uint64(info.Size()))))...)
		w.handler(ctx, path)
	}
}

// matches reports whether the path carries one of the configured media
// extensions. An empty extension list accepts everything.
func (w *Watcher) matches(path string) bool {
	if len(w.cfg.Watch.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range w.cfg.Watch.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
