package buildcfg

import (
	"errors"
	"fmt"
)

// Package errors.
var (
	// ErrNoChannel is returned when the build flag variable is not set.
	ErrNoChannel = errors.New("build configuration channel not set")

	// ErrNoMarker is returned when the flags do not embed an artifact path.
	ErrNoMarker = errors.New("build flags do not name a config artifact")

	// ErrMalformed is returned when the artifact cannot be decoded.
	ErrMalformed = errors.New("malformed config artifact")
)

// Resolution stages.
const (
	StageChannel = "channel"
	StageMarker  = "marker"
	StageRead    = "read"
	StageDecode  = "decode"
)

// BuildError describes a failed configuration resolution.
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("build config %s (%s): %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("build config %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Err
}
