package chunking

import (
	"context"
	"errors"
	"math"
	"testing"
)

// scriptedDetector returns canned energies keyed by probe offset and treats
// anything at or below the threshold as quiet.
type scriptedDetector struct {
	energies  map[float64]float64
	fallback  float64
	threshold float64
	err       error
	calls     int
}

func (d *scriptedDetector) Energy(_ context.Context, _ string, startSec, _ float64) (float64, error) {
	d.calls++
	if d.err != nil {
		return 0, d.err
	}
	if energy, ok := d.energies[math.Round(startSec*10)/10]; ok {
		return energy, nil
	}
	return d.fallback, nil
}

func (d *scriptedDetector) Quiet(energy float64) bool { return energy <= d.threshold }

func assertPartition(t *testing.T, chunks []Chunk, durationSec float64) {
	t.Helper()
	if len(chunks) == 0 {
		t.Fatal("no chunks returned")
	}
	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %v, want 0", chunks[0].Start)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start != chunks[i-1].End {
			t.Errorf("gap/overlap between chunk %d and %d: %v vs %v", i-1, i, chunks[i-1].End, chunks[i].Start)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d has index %d", i, chunks[i].Index)
		}
	}
	last := chunks[len(chunks)-1]
	if last.End != durationSec {
		t.Errorf("last chunk ends at %v, want %v", last.End, durationSec)
	}
}

func TestPlanSingleChunk(t *testing.T) {
	p := NewPlanner(nil, nil, nil)
	chunks, err := p.Plan(context.Background(), "in.mkv", 60, 300)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != 60 {
		t.Errorf("chunk = [%v,%v), want [0,60)", chunks[0].Start, chunks[0].End)
	}
	assertPartition(t, chunks, 60)
}

func TestPlanFixedPartitionWithoutDetector(t *testing.T) {
	p := NewPlanner(nil, nil, nil)
	chunks, err := p.Plan(context.Background(), "in.mkv", 700, 300)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
	if chunks[0].End != 300 || chunks[1].End != 600 {
		t.Errorf("raw boundaries = %v, %v, want 300, 600", chunks[0].End, chunks[1].End)
	}
	assertPartition(t, chunks, 700)
}

func TestPlanAlignsBoundariesToSilence(t *testing.T) {
	// Quiet windows at 255.0s and 575.0s inside the trailing 60s scan
	// windows before the raw 300s and 600s cutoffs.
	detector := &scriptedDetector{
		energies:  map[float64]float64{255.0: 0.001, 575.0: 0.002},
		fallback:  0.5,
		threshold: 0.01,
	}
	p := NewPlanner(nil, detector, nil)

	chunks, err := p.Plan(context.Background(), "in.mkv", 700, 300)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}

	// Boundary lands mid quiet window, within 10% of the raw cutoff.
	if math.Abs(chunks[0].End-255.05) > 0.001 {
		t.Errorf("first boundary = %v, want 255.05", chunks[0].End)
	}
	if math.Abs(chunks[1].End-575.05) > 0.001 {
		t.Errorf("second boundary = %v, want 575.05", chunks[1].End)
	}
	if math.Abs(chunks[0].End-300) > 30+0.1 {
		t.Errorf("first boundary drifted past tolerance: %v", chunks[0].End)
	}
	assertPartition(t, chunks, 700)
}

func TestPlanDetectorErrorFallsBackToRawCutoff(t *testing.T) {
	detector := &scriptedDetector{err: errors.New("ffmpeg missing"), threshold: 0.01}
	p := NewPlanner(nil, detector, nil)

	chunks, err := p.Plan(context.Background(), "in.mkv", 700, 300)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if chunks[0].End != 300 || chunks[1].End != 600 {
		t.Errorf("boundaries = %v, %v, want raw cutoffs 300, 600", chunks[0].End, chunks[1].End)
	}
	assertPartition(t, chunks, 700)
}

func TestPlanNoQuietWindowUsesRawCutoff(t *testing.T) {
	detector := &scriptedDetector{fallback: 0.9, threshold: 0.01}
	p := NewPlanner(nil, detector, nil)

	chunks, err := p.Plan(context.Background(), "in.mkv", 700, 300)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if chunks[0].End != 300 {
		t.Errorf("boundary = %v, want 300", chunks[0].End)
	}
	if detector.calls == 0 {
		t.Error("detector was never consulted")
	}
	assertPartition(t, chunks, 700)
}

func TestPlanCoverageProperty(t *testing.T) {
	p := NewPlanner(nil, nil, nil)
	cases := []struct{ duration, maxChunk float64 }{
		{1, 300}, {299.999, 300}, {300, 300}, {300.001, 300},
		{700, 300}, {900, 300}, {3600, 300}, {61.5, 10},
	}
	for _, tc := range cases {
		chunks, err := p.Plan(context.Background(), "in.mkv", tc.duration, tc.maxChunk)
		if err != nil {
			t.Fatalf("Plan(%v, %v) failed: %v", tc.duration, tc.maxChunk, err)
		}
		assertPartition(t, chunks, tc.duration)
		var covered float64
		for _, chunk := range chunks {
			if chunk.Duration() <= 0 {
				t.Errorf("Plan(%v, %v): empty chunk %d", tc.duration, tc.maxChunk, chunk.Index)
			}
			covered += chunk.Duration()
		}
		if math.Abs(covered-tc.duration) > 1e-9 {
			t.Errorf("Plan(%v, %v): covered %v", tc.duration, tc.maxChunk, covered)
		}
	}
}

func TestPlanRejectsBadInputs(t *testing.T) {
	p := NewPlanner(nil, nil, nil)
	if _, err := p.Plan(context.Background(), "in.mkv", 0, 300); err == nil {
		t.Error("expected error for zero duration")
	}
	if _, err := p.Plan(context.Background(), "in.mkv", -5, 300); err == nil {
		t.Error("expected error for negative duration")
	}
	if _, err := p.Plan(context.Background(), "in.mkv", 100, 0); err == nil {
		t.Error("expected error for zero max chunk duration")
	}
}
