package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/fingerprint"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		namespace string
		model     string
		language  string
		workers   int
		maxChunk  int
		asJSON    bool
		textOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run one media file through the processing pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			params := fingerprint.Params{
				Namespace:       namespace,
				Model:           rt.cfg.Transform.Model,
				Version:         rt.cfg.Transform.Version,
				Language:        rt.cfg.Transform.Language,
				MaxChunkSeconds: rt.cfg.Chunking.MaxChunkSeconds,
				Workers:         rt.cfg.Processing.Workers,
			}
			if model != "" {
				params.Model = model
			}
			if language != "" {
				params.Language = language
			}
			if workers > 0 {
				params.Workers = workers
			}
			if maxChunk > 0 {
				params.MaxChunkSeconds = maxChunk
			}

			result, err := rt.engine.Process(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, result)
			}
			if textOnly {
				fmt.Fprintln(cmd.OutOrStdout(), result.Text)
				return nil
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Fingerprint", shortFingerprint(result.Fingerprint)},
				{"Model", result.Model},
				{"From cache", yesNo(result.FromCache)},
				{"Chunks", strconv.Itoa(result.ChunkCount)},
				{"Partial", yesNo(result.Partial)},
				{"Elapsed", result.Duration().Truncate(1e6).String()},
			}
			if len(result.FailedChunks) > 0 {
				rows = append(rows, []string{"Failed chunks", joinInts(result.FailedChunks)})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			if result.Text != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, result.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "Cache namespace (defaults to the artifact namespace)")
	cmd.Flags().StringVar(&model, "model", "", "Model name override")
	cmd.Flags().StringVar(&language, "language", "", "Language hint override")
	cmd.Flags().IntVar(&workers, "workers", 0, "Chunk worker pool size override")
	cmd.Flags().IntVar(&maxChunk, "max-chunk", 0, "Maximum chunk length in seconds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full result as JSON")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the merged text")

	return cmd
}

func shortFingerprint(fp string) string {
	return fingerprint.Fingerprint(fp).Short()
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
