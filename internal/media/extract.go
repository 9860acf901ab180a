package media

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ExtractSegment extracts a time-range slice of one audio stream from a
// source file. The output is a mono 16kHz WAV file suitable for speech
// models.
func ExtractSegment(ctx context.Context, ffmpegBinary, source string, audioIndex int, startSec, durationSec float64, dest string) error {
	if audioIndex < 0 {
		return fmt.Errorf("extract segment: invalid audio stream index %d", audioIndex)
	}
	if durationSec <= 0 {
		return fmt.Errorf("extract segment: invalid duration %v", durationSec)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-i", source,
		"-map", fmt.Sprintf("0:a:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract segment: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// DecodeWindow decodes a short window of one audio stream to raw mono 16kHz
// signed 16-bit samples and returns their RMS amplitude normalized to 0..1.
// It is the energy probe behind silence-aligned chunk boundaries.
func DecodeWindow(ctx context.Context, ffmpegBinary, source string, audioIndex int, startSec, durationSec float64) (float64, error) {
	if durationSec <= 0 {
		return 0, fmt.Errorf("decode window: invalid duration %v", durationSec)
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-i", source,
		"-map", fmt.Sprintf("0:a:%d", audioIndex),
		"-ac", "1",
		"-ar", "16000",
		"-f", "s16le",
		"-",
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffmpeg decode window: %w", err)
	}
	return RMSAmplitude(output), nil
}

// RMSAmplitude computes the root-mean-square amplitude of little-endian
// signed 16-bit PCM, normalized to 0..1. Empty input yields 0.
func RMSAmplitude(pcm []byte) float64 {
	sampleCount := len(pcm) / 2
	if sampleCount == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < sampleCount; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		normalized := float64(sample) / math.MaxInt16
		sum += normalized * normalized
	}
	return math.Sqrt(sum / float64(sampleCount))
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
