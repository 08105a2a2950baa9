package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks settings rejected before any engine work.
	ErrValidation = errors.New("validation error")
	// ErrProbe marks unreadable input container metadata.
	ErrProbe = errors.New("probe failure")
	// ErrEngineLoad marks a failed engine initialization. Terminal for the
	// process lifetime; there is no reload policy.
	ErrEngineLoad = errors.New("engine load failure")
	// ErrEngine marks an invocation rejected for a reason other than timeout.
	ErrEngine = errors.New("engine failure")
	// ErrTimeout marks a job abandoned by the watchdog.
	ErrTimeout = errors.New("timeout")
	// ErrBusy marks an invocation attempted while another is in flight.
	ErrBusy = errors.New("engine busy")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEngine
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
