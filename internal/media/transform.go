package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Segment is one timed span of model output. Start and End are seconds in
// the coordinate system of whatever audio the model was handed; the
// dispatcher shifts them into full-input coordinates after chunked runs.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// RawResult is the output of one model invocation.
type RawResult struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Request describes one model invocation over an extracted audio file.
type Request struct {
	// Source is the path to the extracted WAV for this call.
	Source string
	// WorkDir is a scratch directory owned by the caller; the transformer
	// may write output files there but must not assume it survives the call.
	WorkDir string
	// Language is an optional ISO language hint.
	Language string
}

// Transformer is the model call consumed by the processing engine. One
// invocation per chunk; implementations may be slow and may fail, and must
// be idempotent for identical input bytes.
type Transformer interface {
	Transform(ctx context.Context, req Request) (*RawResult, error)
}

// CommandConfig configures a CommandTransformer.
type CommandConfig struct {
	Command   string
	Model     string
	Language  string
	ExtraArgs []string
}

// CommandTransformer shells out to a whisper-style CLI that reads a WAV file
// and writes a JSON segment file alongside it.
type CommandTransformer struct {
	cfg    CommandConfig
	runner func(ctx context.Context, name string, args ...string) error
}

// NewCommandTransformer creates a transformer for the configured command.
func NewCommandTransformer(cfg CommandConfig) *CommandTransformer {
	return &CommandTransformer{cfg: cfg}
}

// WithRunner sets a custom command runner (for testing).
func (t *CommandTransformer) WithRunner(runner func(ctx context.Context, name string, args ...string) error) {
	t.runner = runner
}

// Transform runs the configured command over req.Source and parses the JSON
// segment file it writes to req.WorkDir.
func (t *CommandTransformer) Transform(ctx context.Context, req Request) (*RawResult, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, fmt.Errorf("transform: source path required")
	}
	outputDir := req.WorkDir
	if outputDir == "" {
		outputDir = filepath.Dir(req.Source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transform: ensure output dir: %w", err)
	}

	args := t.buildArgs(req.Source, outputDir, req.Language)
	if err := t.run(ctx, t.cfg.Command, args...); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(req.Source), filepath.Ext(req.Source))
	return LoadRawResult(filepath.Join(outputDir, baseName+".json"))
}

func (t *CommandTransformer) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 12+len(t.cfg.ExtraArgs))
	args = append(args, source)
	if model := strings.TrimSpace(t.cfg.Model); model != "" {
		args = append(args, "--model", model)
	}
	args = append(args,
		"--output_dir", outputDir,
		"--output_format", "json",
	)
	if language == "" {
		language = t.cfg.Language
	}
	if language = strings.TrimSpace(language); language != "" {
		args = append(args, "--language", language)
	}
	args = append(args, t.cfg.ExtraArgs...)
	return args
}

func (t *CommandTransformer) run(ctx context.Context, name string, args ...string) error {
	if t.runner != nil {
		return t.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// LoadRawResult reads a JSON segment file produced by the model command and
// fills in the concatenated text when the file carries only segments.
func LoadRawResult(jsonPath string) (*RawResult, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}
	var result RawResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	if result.Text == "" {
		parts := make([]string, 0, len(result.Segments))
		for _, seg := range result.Segments {
			if text := strings.TrimSpace(seg.Text); text != "" {
				parts = append(parts, text)
			}
		}
		result.Text = strings.Join(parts, " ")
	}
	return &result, nil
}
