package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loom/internal/config"
	"loom/internal/testsupport"
)

func startWatcher(t *testing.T, cfg *config.Config) <-chan string {
	t.Helper()

	settled := make(chan string, 8)
	w, err := New(cfg, func(_ context.Context, path string) {
		settled <- path
	}, nil)
	if err != nil {
		t.Fatalf("watch.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
	})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return settled
}

func waitForFile(t *testing.T, settled <-chan string, want string) {
	t.Helper()
	select {
	case got := <-settled:
		if got != want {
			t.Fatalf("settled path = %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q to settle", want)
	}
}

func TestWatcherPicksUpNewFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleSeconds = 0
	settled := startWatcher(t, cfg)

	path := filepath.Join(cfg.Watch.IngestDir, "episode.mkv")
	testsupport.WriteFile(t, path, 2048)
	waitForFile(t, settled, path)
}

func TestWatcherPicksUpPreexistingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleSeconds = 0

	path := filepath.Join(cfg.Watch.IngestDir, "already-there.wav")
	testsupport.WriteFile(t, path, 1024)

	settled := startWatcher(t, cfg)
	waitForFile(t, settled, path)
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleSeconds = 0
	settled := startWatcher(t, cfg)

	testsupport.WriteFile(t, filepath.Join(cfg.Watch.IngestDir, "notes.txt"), 64)
	media := filepath.Join(cfg.Watch.IngestDir, "keep.mp4")
	testsupport.WriteFile(t, media, 64)

	// Only the media file may come through.
	waitForFile(t, settled, media)
	select {
	case path := <-settled:
		t.Fatalf("unexpected settled file %q", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherWaitsForGrowingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleSeconds = 1
	settled := startWatcher(t, cfg)

	path := filepath.Join(cfg.Watch.IngestDir, "growing.flac")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(make([]byte, 512)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Keep growing for a moment; the file must not settle while changing.
	grow := time.After(600 * time.Millisecond)
growing:
	for {
		select {
		case p := <-settled:
			t.Fatalf("file settled while still growing: %q", p)
		case <-grow:
			break growing
		case <-time.After(150 * time.Millisecond):
			if _, err := f.Write(make([]byte, 256)); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
	}

	waitForFile(t, settled, path)
}

func TestNewRejectsMissingConfiguration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.IngestDir = ""
	if _, err := New(cfg, func(context.Context, string) {}, nil); err == nil {
		t.Fatal("expected error for empty ingest dir")
	}

	cfg2 := testsupport.NewConfig(t)
	if _, err := New(cfg2, nil, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}
