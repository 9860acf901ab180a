package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var baseParams = Params{
	Namespace:       "artifact",
	Model:           "small",
	Version:         "1",
	Language:        "en",
	MaxChunkSeconds: 300,
	Workers:         4,
}

func TestFromReaderDeterministic(t *testing.T) {
	a, err := FromReader(strings.NewReader("audio bytes"), baseParams)
	if err != nil {
		t.Fatalf("FromReader failed: %v", err)
	}
	b, err := FromReader(strings.NewReader("audio bytes"), baseParams)
	if err != nil {
		t.Fatalf("FromReader failed: %v", err)
	}
	if a != b {
		t.Errorf("identical input produced different fingerprints: %s vs %s", a, b)
	}
}

func TestSingleByteChangeChangesFingerprint(t *testing.T) {
	a, _ := FromReader(strings.NewReader("audio bytes"), baseParams)
	b, _ := FromReader(strings.NewReader("audio bytez"), baseParams)
	if a == b {
		t.Error("single byte change did not change fingerprint")
	}
}

func TestParamChangesChangeFingerprint(t *testing.T) {
	base, _ := FromReader(strings.NewReader("audio bytes"), baseParams)

	mutations := map[string]func(Params) Params{
		"namespace": func(p Params) Params { p.Namespace = "session"; return p },
		"model":     func(p Params) Params { p.Model = "large"; return p },
		"version":   func(p Params) Params { p.Version = "2"; return p },
		"language":  func(p Params) Params { p.Language = "de"; return p },
		"max_chunk": func(p Params) Params { p.MaxChunkSeconds = 60; return p },
	}
	for name, mutate := range mutations {
		got, _ := FromReader(strings.NewReader("audio bytes"), mutate(baseParams))
		if got == base {
			t.Errorf("%s change did not change fingerprint", name)
		}
	}
}

func TestWorkerCountDoesNotChangeFingerprint(t *testing.T) {
	a, _ := FromReader(strings.NewReader("audio bytes"), baseParams)
	altered := baseParams
	altered.Workers = 16
	b, _ := FromReader(strings.NewReader("audio bytes"), altered)
	if a != b {
		t.Error("worker count must not affect the fingerprint")
	}
}

func TestFileMatchesReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.bin")
	if err := os.WriteFile(path, []byte("file content"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	fromFile, err := File(path, baseParams)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	fromReader, _ := FromReader(strings.NewReader("file content"), baseParams)
	if fromFile != fromReader {
		t.Errorf("File and FromReader disagree: %s vs %s", fromFile, fromReader)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "absent"), baseParams); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestKeyAndShort(t *testing.T) {
	fp, _ := FromReader(strings.NewReader("x"), baseParams)
	key := fp.Key("artifact")
	if !strings.HasPrefix(key, "artifact:") || !strings.HasSuffix(key, string(fp)) {
		t.Errorf("unexpected key %q", key)
	}
	if len(fp.Short()) != 12 {
		t.Errorf("Short() length = %d, want 12", len(fp.Short()))
	}
}
