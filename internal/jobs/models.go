package jobs

import (
	"strings"
	"time"

	"loom/internal/media"
)

// Status tracks a job through the engine's state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCacheCheck Status = "cache_check"
	StatusLockWait   Status = "lock_wait"
	StatusCompute    Status = "compute"
	StatusCacheWrite Status = "cache_write"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Result is the merged outcome of one processing job. It is the payload
// stored in the content-addressable cache, so every field must survive a
// JSON round trip byte-identically.
type Result struct {
	JobID       string          `json:"job_id"`
	Source      string          `json:"source"`
	Namespace   string          `json:"namespace"`
	Fingerprint string          `json:"fingerprint"`
	Model       string          `json:"model"`
	Text        string          `json:"text"`
	Segments    []media.Segment `json:"segments,omitempty"`
	// Partial is set when at least one chunk degraded after retry
	// exhaustion while others succeeded.
	Partial      bool      `json:"partial"`
	FromCache    bool      `json:"from_cache"`
	ChunkCount   int       `json:"chunk_count"`
	FailedChunks []int     `json:"failed_chunks,omitempty"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Duration returns the recorded processing time.
func (r *Result) Duration() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}

// JoinText concatenates non-empty segment texts in order.
func JoinText(segments []media.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
