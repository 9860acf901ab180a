package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"loom/internal/kv"
)

func TestAcquireAndRelease(t *testing.T) {
	coord := New(kv.NewMemory(), time.Millisecond, nil)
	ctx := context.Background()

	token, ok := coord.Acquire(ctx, "fp1", time.Minute, 0)
	if !ok || token == "" {
		t.Fatalf("Acquire failed: ok=%v token=%q", ok, token)
	}
	if !coord.Release(ctx, "fp1", token) {
		t.Fatal("Release with current token should succeed")
	}
	if coord.Release(ctx, "fp1", token) {
		t.Fatal("second Release must be a no-op")
	}
}

func TestSecondAcquireBlocksUntilRelease(t *testing.T) {
	coord := New(kv.NewMemory(), time.Millisecond, nil)
	ctx := context.Background()

	tokenA, ok := coord.Acquire(ctx, "fp1", time.Minute, 0)
	if !ok {
		t.Fatal("first Acquire failed")
	}

	if _, ok := coord.Acquire(ctx, "fp1", time.Minute, 10*time.Millisecond); ok {
		t.Fatal("second Acquire should time out while lock is held")
	}

	coord.Release(ctx, "fp1", tokenA)
	if _, ok := coord.Acquire(ctx, "fp1", time.Minute, 100*time.Millisecond); !ok {
		t.Fatal("Acquire after release should succeed")
	}
}

func TestMutualExclusion(t *testing.T) {
	coord := New(kv.NewMemory(), time.Millisecond, nil)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		holders int
		maxHeld int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, ok := coord.Acquire(ctx, "shared", time.Minute, time.Second)
			if !ok {
				return
			}
			mu.Lock()
			holders++
			if holders > maxHeld {
				maxHeld = holders
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			coord.Release(ctx, "shared", token)
		}()
	}
	wg.Wait()

	if maxHeld > 1 {
		t.Errorf("observed %d concurrent holders, want at most 1", maxHeld)
	}
}

func TestStaleTokenCannotReleaseNewHolder(t *testing.T) {
	backend := kv.NewMemory()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := &clock
	backend.SetClock(func() time.Time { return *now })

	coord := New(backend, time.Millisecond, nil)
	ctx := context.Background()

	staleToken, ok := coord.Acquire(ctx, "fp1", time.Minute, 0)
	if !ok {
		t.Fatal("first Acquire failed")
	}

	// Lease expires; another caller takes over.
	clock = clock.Add(2 * time.Minute)
	newToken, ok := coord.Acquire(ctx, "fp1", time.Minute, 0)
	if !ok {
		t.Fatal("Acquire after lease expiry failed")
	}

	if coord.Release(ctx, "fp1", staleToken) {
		t.Fatal("stale token must not release the new holder's lock")
	}
	if !coord.Release(ctx, "fp1", newToken) {
		t.Fatal("new holder's release should succeed")
	}
}

func TestAcquireRespectsContext(t *testing.T) {
	coord := New(kv.NewMemory(), 5*time.Millisecond, nil)
	ctx := context.Background()

	if _, ok := coord.Acquire(ctx, "fp1", time.Minute, 0); !ok {
		t.Fatal("setup Acquire failed")
	}

	cancelled, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, ok := coord.Acquire(cancelled, "fp1", time.Minute, time.Minute); ok {
		t.Fatal("Acquire should fail once context is cancelled")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Acquire did not honor cancellation promptly (took %v)", elapsed)
	}
}

func TestAcquireFailsOpenOnBackendError(t *testing.T) {
	coord := New(nil, time.Millisecond, nil)
	if _, ok := coord.Acquire(context.Background(), "fp1", time.Minute, time.Second); ok {
		t.Fatal("nil backend must report acquisition failure")
	}
	if coord.Release(context.Background(), "fp1", "token") {
		t.Fatal("nil backend must report release failure")
	}
}
