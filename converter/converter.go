package converter

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedMode    = errors.New("unsupported conversion mode")
	ErrBackendUnavailable = errors.New("conversion backend unavailable")
)

// Error is the normalized conversion failure reported to callers. Backend
// and pipeline failures of any shape are folded into it; an Error already
// in flight passes through unwrapped.
type Error struct {
	Cause string
}

func (e *Error) Error() string {
	return e.Cause
}

// Errorf builds a conversion failure with a human-readable cause.
func Errorf(format string, args ...any) error {
	return &Error{Cause: fmt.Sprintf(format, args...)}
}

// Converter transforms one input file into one output file. Implementations
// declare the extensions they accept and produce; everything else about the
// transformation is opaque to the rest of the system.
type Converter interface {
	InputExtension() string
	OutputExtension() string
	Convert(ctx context.Context, inputPath, outputPath, taskID string) error
}
