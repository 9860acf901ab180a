package cache

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loom/internal/config"
	"loom/internal/fingerprint"
	"loom/internal/kv"
)

type failingBackend struct{}

var errBackendDown = errors.New("backend unreachable")

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackendDown
}
func (failingBackend) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errBackendDown
}
func (failingBackend) SetIfAbsent(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errBackendDown
}
func (failingBackend) Delete(context.Context, string) error { return errBackendDown }
func (failingBackend) DeleteIfEquals(context.Context, string, []byte) (bool, error) {
	return false, errBackendDown
}
func (failingBackend) Ping(context.Context) error { return errBackendDown }
func (failingBackend) Close() error               { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func testFingerprint(t *testing.T, content string) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.FromReader(strings.NewReader(content), fingerprint.Params{Namespace: "artifact", Version: "1"})
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	return fp
}

func TestPutThenGet(t *testing.T) {
	c := New(kv.NewMemory(), testConfig(), nil)
	ctx := context.Background()
	fp := testFingerprint(t, "input")

	c.Put(ctx, config.NamespaceArtifact, fp, []byte("payload"))
	payload, found := c.Get(ctx, config.NamespaceArtifact, fp)
	if !found {
		t.Fatal("expected hit after Put")
	}
	if string(payload) != "payload" {
		t.Errorf("payload = %q, want %q", payload, "payload")
	}

	stats := c.Stats()
	if stats.Sets != 1 || stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("stats = %+v, want sets=1 hits=1 misses=0", stats)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	c := New(kv.NewMemory(), testConfig(), nil)
	ctx := context.Background()
	fp := testFingerprint(t, "input")

	c.Put(ctx, config.NamespaceArtifact, fp, []byte("artifact"))
	if _, found := c.Get(ctx, config.NamespaceSession, fp); found {
		t.Fatal("entry leaked across namespaces")
	}
}

func TestBackendFailureReadsAsMiss(t *testing.T) {
	c := New(failingBackend{}, testConfig(), nil)
	ctx := context.Background()
	fp := testFingerprint(t, "input")

	if _, found := c.Get(ctx, config.NamespaceArtifact, fp); found {
		t.Fatal("failed backend must read as miss")
	}
	// Writes are dropped without error.
	c.Put(ctx, config.NamespaceArtifact, fp, []byte("payload"))
	c.Delete(ctx, config.NamespaceArtifact, fp)

	stats := c.Stats()
	if stats.Errors != 3 {
		t.Errorf("errors = %d, want 3", stats.Errors)
	}
	if stats.Sets != 0 || stats.Hits != 0 {
		t.Errorf("stats = %+v, want no sets or hits", stats)
	}
}

func TestDisabledCachePassesThrough(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = false
	c := New(kv.NewMemory(), cfg, nil)
	ctx := context.Background()
	fp := testFingerprint(t, "input")

	c.Put(ctx, config.NamespaceArtifact, fp, []byte("payload"))
	if _, found := c.Get(ctx, config.NamespaceArtifact, fp); found {
		t.Fatal("disabled cache must always miss")
	}
}

func TestNamespaceTTLApplied(t *testing.T) {
	backend := kv.NewMemory()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := &clock
	backend.SetClock(func() time.Time { return *now })

	c := New(backend, testConfig(), nil)
	ctx := context.Background()
	fp := testFingerprint(t, "input")

	// Session namespace defaults to 2h; artifact to 24h.
	c.Put(ctx, config.NamespaceSession, fp, []byte("s"))
	c.Put(ctx, config.NamespaceArtifact, fp, []byte("a"))

	clock = clock.Add(3 * time.Hour)
	if _, found := c.Get(ctx, config.NamespaceSession, fp); found {
		t.Error("session entry should have expired after 3h")
	}
	if _, found := c.Get(ctx, config.NamespaceArtifact, fp); !found {
		t.Error("artifact entry should survive 3h")
	}

	clock = clock.Add(24 * time.Hour)
	if _, found := c.Get(ctx, config.NamespaceArtifact, fp); found {
		t.Error("artifact entry should have expired after 27h")
	}
}

func TestSweepPurgesExpiredEntries(t *testing.T) {
	backend := kv.NewMemory()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := &clock
	backend.SetClock(func() time.Time { return *now })

	c := New(backend, testConfig(), nil)
	ctx := context.Background()

	// Session entries expire after 2h, artifact after 24h.
	c.Put(ctx, config.NamespaceSession, testFingerprint(t, "a"), []byte("a"))
	c.Put(ctx, config.NamespaceSession, testFingerprint(t, "b"), []byte("b"))
	c.Put(ctx, config.NamespaceArtifact, testFingerprint(t, "c"), []byte("c"))

	clock = clock.Add(3 * time.Hour)
	if removed := c.Sweep(ctx); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if backend.Len() != 1 {
		t.Errorf("live entries = %d, want 1", backend.Len())
	}
	if stats := c.Stats(); stats.Swept != 2 {
		t.Errorf("swept = %d, want 2", stats.Swept)
	}
}

func TestSweeperTickerPurgesExpiredRows(t *testing.T) {
	backend, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	c := New(backend, testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.PutTTL(ctx, config.NamespaceArtifact, testFingerprint(t, "input"), []byte("payload"), 20*time.Millisecond)
	go c.RunSweeper(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(3 * time.Second)
	for c.Stats().Swept == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never purged the expired row")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweepNoopWithoutBackendSupport(t *testing.T) {
	c := New(failingBackend{}, testConfig(), nil)
	if removed := c.Sweep(context.Background()); removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if stats := c.Stats(); stats.Errors != 0 || stats.Swept != 0 {
		t.Errorf("stats = %+v, want no errors or sweeps", stats)
	}
}

func TestDeleteCounts(t *testing.T) {
	c := New(kv.NewMemory(), testConfig(), nil)
	ctx := context.Background()
	fp := testFingerprint(t, "input")

	c.Put(ctx, config.NamespaceArtifact, fp, []byte("payload"))
	c.Delete(ctx, config.NamespaceArtifact, fp)
	if _, found := c.Get(ctx, config.NamespaceArtifact, fp); found {
		t.Fatal("entry survived delete")
	}
	if stats := c.Stats(); stats.Deletes != 1 {
		t.Errorf("deletes = %d, want 1", stats.Deletes)
	}
}
