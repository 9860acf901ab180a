package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Fingerprint is a deterministic identifier derived from full input content
// and processing parameters. It serves as both the cache key and the lock
// resource name.
type Fingerprint string

// String returns the lower-hex digest.
func (f Fingerprint) String() string { return string(f) }

// Short returns a truncated form for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Params captures every processing input that must change the fingerprint.
// Two runs with equal content bytes and equal Params are interchangeable.
type Params struct {
	Namespace       string
	Model           string
	Version         string
	Language        string
	MaxChunkSeconds int
	Workers         int
}

// Canonical renders the parameters as a stable, order-independent string.
// Workers is deliberately excluded: pool sizing changes scheduling, not
// output bytes. The silence-tuning knobs (quiet_threshold,
// boundary_window_fraction, probe_window_ms) are excluded for the same
// reason max_chunk is included only as a ceiling: they shift where seams
// land inside that ceiling, and treating every retune as a distinct input
// would orphan all prior cache entries for content the model still
// transcribes the same way.
func (p Params) Canonical() string {
	pairs := map[string]string{
		"namespace": strings.TrimSpace(p.Namespace),
		"model":     strings.TrimSpace(p.Model),
		"version":   strings.TrimSpace(p.Version),
		"language":  strings.TrimSpace(p.Language),
		"max_chunk": fmt.Sprintf("%d", p.MaxChunkSeconds),
	}
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(pairs[key])
		sb.WriteByte(';')
	}
	return sb.String()
}

// File computes the fingerprint of a file's full content combined with the
// canonical parameter encoding. The content is digested in a streaming pass,
// never loaded whole.
func File(path string, params Params) (Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: open input: %w", err)
	}
	defer file.Close()
	return FromReader(file, params)
}

// FromReader computes the fingerprint of arbitrary content plus parameters.
func FromReader(r io.Reader, params Params) (Fingerprint, error) {
	content := sha256.New()
	if _, err := io.Copy(content, r); err != nil {
		return "", fmt.Errorf("fingerprint: digest content: %w", err)
	}

	combined := sha256.New()
	combined.Write(content.Sum(nil))
	combined.Write([]byte{'\n'})
	combined.Write([]byte(params.Canonical()))
	return Fingerprint(hex.EncodeToString(combined.Sum(nil))), nil
}

// Key returns the backend key for this fingerprint within a namespace.
func (f Fingerprint) Key(namespace string) string {
	return namespace + ":" + string(f)
}
