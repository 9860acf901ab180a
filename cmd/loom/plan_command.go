package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"loom/internal/chunking"
	"loom/internal/media"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var (
		maxChunk int
		noAlign  bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show how a file would be split into chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			probe, err := media.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}
			durationSec, err := probe.DurationSeconds()
			if err != nil {
				return err
			}

			var detector chunking.SilenceDetector
			if !noAlign {
				detector = &chunking.RMSDetector{
					FFmpegBinary: cfg.FFmpegBinary(),
					AudioStream:  cfg.Chunking.AudioStream,
					Threshold:    cfg.Chunking.QuietThreshold,
				}
			}
			planner := chunking.NewPlanner(cfg, detector, nil)

			chunkSec := cfg.Chunking.MaxChunkSeconds
			if maxChunk > 0 {
				chunkSec = maxChunk
			}
			chunks, err := planner.Plan(cmd.Context(), args[0], durationSec, float64(chunkSec))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, chunks)
			}

			rows := make([][]string, 0, len(chunks))
			for _, chunk := range chunks {
				rows = append(rows, []string{
					strconv.Itoa(chunk.Index),
					formatOffset(chunk.Start),
					formatOffset(chunk.End),
					formatOffset(chunk.Duration()),
				})
			}
			out := cmd.OutOrStdout()
			size := ""
			if bytes := probe.SizeBytes(); bytes > 0 {
				size = humanize.Bytes(uint64(bytes)) + ", "
			}
			fmt.Fprintf(out, "%s: %s%.1fs in %d chunk(s)\n", args[0], size, durationSec, len(chunks))
			fmt.Fprintln(out, renderTable(
				[]string{"Chunk", "Start", "End", "Length"},
				rows,
				alignRight, alignRight, alignRight, alignRight))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxChunk, "max-chunk", 0, "Maximum chunk length in seconds")
	cmd.Flags().BoolVar(&noAlign, "no-align", false, "Skip silence alignment and cut at fixed offsets")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the plan as JSON")

	return cmd
}

func formatOffset(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}
