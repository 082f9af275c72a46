package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any upstream call.
	ErrValidation = errors.New("validation error")
	// ErrUpstream marks a failure of the model or search backend.
	ErrUpstream = errors.New("upstream error")
	// ErrUnknownTool marks a tool call naming a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// UpstreamError wraps a model or tool failure. errors.Is matches both ErrUpstream and
// the wrapped cause.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
