package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidScale is returned when a base or target scale is not a
	// finite, strictly positive number. No model pass is run.
	ErrInvalidScale = errors.New("scale must be finite and greater than 0")

	// ErrUnknownPolicy is returned for a policy outside the enumerated set.
	ErrUnknownPolicy = errors.New("unknown scale policy")
)

// ModelError reports a failed model pass. Pass is 1-based.
type ModelError struct {
	Pass   int
	Passes int
	Err    error
}

func (e *ModelError) Error() string {
	return e.Err.Error()
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ResizeError reports a failed residual resize.
type ResizeError struct {
	Width  int
	Height int
	Err    error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("residual resize to %dx%d: %v", e.Width, e.Height, e.Err)
}

func (e *ResizeError) Unwrap() error {
	return e.Err
}
