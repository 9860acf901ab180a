package chunking

import (
	"context"

	"loom/internal/media"
)

// SilenceDetector locates low-energy audio so chunk boundaries can land
// between utterances instead of mid-word. Implementations may range from a
// plain RMS threshold to a learned voice-activity model; the planner only
// needs relative energies and a quiet verdict.
type SilenceDetector interface {
	// Energy returns a non-negative amplitude measure for the window.
	Energy(ctx context.Context, source string, startSec, durationSec float64) (float64, error)
	// Quiet reports whether the measured energy counts as silence.
	Quiet(energy float64) bool
}

// RMSDetector measures root-mean-square amplitude over ffmpeg-decoded PCM.
type RMSDetector struct {
	FFmpegBinary string
	AudioStream  int
	// Threshold is the normalized amplitude (0..1) at or below which a
	// window counts as quiet.
	Threshold float64
}

func (d *RMSDetector) Energy(ctx context.Context, source string, startSec, durationSec float64) (float64, error) {
	return media.DecodeWindow(ctx, d.FFmpegBinary, source, d.AudioStream, startSec, durationSec)
}

func (d *RMSDetector) Quiet(energy float64) bool {
	return energy <= d.Threshold
}
