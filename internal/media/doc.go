// Package media wraps the external tools the engine needs for audio work:
// ffprobe inspection for durations, ffmpeg extraction of mono 16kHz WAV
// segments and raw PCM windows for energy probing, and the Transformer
// contract for the per-chunk model call with a command-backed
// implementation.
package media
