package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"loom/internal/config"
	"loom/internal/logging"
)

// Planner splits a long input into bounded chunks, nudging interior
// boundaries toward quiet audio when a detector is available.
type Planner struct {
	detector         SilenceDetector
	boundaryFraction float64
	probeWindow      time.Duration
	logger           *slog.Logger
}

// NewPlanner creates a planner. detector may be nil, in which case every
// boundary falls on the raw fixed-duration cutoff.
func NewPlanner(cfg *config.Config, detector SilenceDetector, logger *slog.Logger) *Planner {
	boundaryFraction := 0.2
	probeWindow := 100 * time.Millisecond
	if cfg != nil {
		if cfg.Chunking.BoundaryWindowFraction > 0 {
			boundaryFraction = cfg.Chunking.BoundaryWindowFraction
		}
		if cfg.Chunking.ProbeWindowMS > 0 {
			probeWindow = time.Duration(cfg.Chunking.ProbeWindowMS) * time.Millisecond
		}
	}
	return &Planner{
		detector:         detector,
		boundaryFraction: boundaryFraction,
		probeWindow:      probeWindow,
		logger:           logging.NewComponentLogger(logger, "planner"),
	}
}

// Plan partitions [0, durationSec) into chunks no longer than roughly
// maxChunkSec each. Interior boundaries shift earlier by at most
// maxChunkSec*boundaryFraction when a quieter point is found; the chunks
// always remain contiguous, non-overlapping, and cover the full duration.
func (p *Planner) Plan(ctx context.Context, source string, durationSec, maxChunkSec float64) ([]Chunk, error) {
	if durationSec <= 0 {
		return nil, fmt.Errorf("plan chunks: non-positive duration %v", durationSec)
	}
	if maxChunkSec <= 0 {
		return nil, fmt.Errorf("plan chunks: non-positive max chunk duration %v", maxChunkSec)
	}

	if durationSec <= maxChunkSec {
		return []Chunk{{Index: 0, Start: 0, End: durationSec, Source: source}}, nil
	}

	count := int(math.Ceil(durationSec / maxChunkSec))
	chunks := make([]Chunk, 0, count)

	start := 0.0
	for index := 0; index < count; index++ {
		end := math.Min(float64(index+1)*maxChunkSec, durationSec)
		if index < count-1 {
			end = p.refineBoundary(ctx, source, start, end, maxChunkSec)
		} else {
			end = durationSec
		}
		chunks = append(chunks, Chunk{Index: index, Start: start, End: end, Source: source})
		start = end
	}

	p.logger.Debug("chunk plan complete",
		logging.Args(
			logging.Int("chunk_count", len(chunks)),
			logging.Float64("duration_sec", durationSec),
			logging.Float64("max_chunk_sec", maxChunkSec))...)
	return chunks, nil
}

// refineBoundary scans the trailing window before rawEnd for the quietest
// point. Detector absence, errors, or no quiet window at all fall back to
// the raw cutoff.
func (p *Planner) refineBoundary(ctx context.Context, source string, start, rawEnd, maxChunkSec float64) float64 {
	if p.detector == nil {
		return rawEnd
	}

	window := maxChunkSec * p.boundaryFraction
	if window <= 0 {
		return rawEnd
	}
	scanStart := rawEnd - window
	if scanStart <= start {
		return rawEnd
	}

	probeSec := p.probeWindow.Seconds()
	if probeSec <= 0 || probeSec >= window {
		return rawEnd
	}

	best := rawEnd
	bestEnergy := math.Inf(1)
	found := false
	for offset := scanStart; offset+probeSec <= rawEnd; offset += probeSec {
		energy, err := p.detector.Energy(ctx, source, offset, probeSec)
		if err != nil {
			p.logger.Debug("boundary probe failed, using raw cutoff",
				logging.Args(
					logging.Float64("offset_sec", offset),
					logging.Error(err))...)
			return rawEnd
		}
		if p.detector.Quiet(energy) && energy < bestEnergy {
			bestEnergy = energy
			// Split in the middle of the quiet window so neither side
			// clips the surrounding speech.
			best = offset + probeSec/2
			found = true
		}
	}

	if !found {
		return rawEnd
	}
	p.logger.Debug("boundary aligned to silence",
		logging.Args(
			logging.Float64("raw_end_sec", rawEnd),
			logging.Float64("aligned_end_sec", best),
			logging.Float64("energy", bestEnergy))...)
	return best
}
