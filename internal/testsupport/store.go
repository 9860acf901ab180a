package testsupport

import (
	"testing"

	"loom/internal/config"
	"loom/internal/kv"
)

// MustOpenBackend opens the configured key-value backend for tests and
// registers cleanup.
func MustOpenBackend(t testing.TB, cfg *config.Config) kv.Backend {
	t.Helper()

	backend, err := kv.Open(cfg)
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	t.Cleanup(func() {
		backend.Close()
	})
	return backend
}
