package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks unusable input: missing files, bad parameters.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks engine misconfiguration discovered at run time.
	ErrConfiguration = errors.New("configuration error")
	// ErrPlanning marks a failure before any model call was made, such as
	// an unreadable or indeterminate input duration.
	ErrPlanning = errors.New("planning error")
	// ErrJobFailed marks a compute run in which no chunk produced output.
	ErrJobFailed = errors.New("job failed")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrJobFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
