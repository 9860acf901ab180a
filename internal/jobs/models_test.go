package jobs

import (
	"testing"
	"time"

	"loom/internal/media"
)

func TestStatusIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:    false,
		StatusCacheCheck: false,
		StatusLockWait:   false,
		StatusCompute:    false,
		StatusCacheWrite: false,
		StatusDone:       true,
		StatusFailed:     true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestJoinTextSkipsEmptySegments(t *testing.T) {
	segments := []media.Segment{
		{Text: "hello"},
		{Text: "   "},
		{Text: ""},
		{Text: "world"},
	}
	if got := JoinText(segments); got != "hello world" {
		t.Errorf("JoinText = %q, want %q", got, "hello world")
	}
	if got := JoinText(nil); got != "" {
		t.Errorf("JoinText(nil) = %q, want empty", got)
	}
}

func TestResultDuration(t *testing.T) {
	result := Result{ElapsedMS: 1500}
	if got := result.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", got)
	}
}
