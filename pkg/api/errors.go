package api

import (
	"errors"
	"fmt"
)

// ErrNoFindings is the fatal error raised when the first research round
// produced nothing and the empty-findings policy is EmptyFindingsFail.
var ErrNoFindings = errors.New("no findings")

// ErrNoRenderer is raised when the write step has no renderer at all to
// fall back to. It is the one unrecoverable rendering error.
var ErrNoRenderer = errors.New("no renderer configured")

// FatalError marks a step failure that cannot be degraded away. It carries
// the identity of the step that raised it; the engine stops immediately
// and records both on the terminal state.
type FatalError struct {
	Step string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError wraps err as a fatal failure of the named step.
func NewFatalError(step string, err error) error {
	return &FatalError{Step: step, Err: err}
}

// IsFatalError returns the failing step's name if err is fatal.
func IsFatalError(err error) (string, bool) {
	var f *FatalError
	if errors.As(err, &f) {
		return f.Step, true
	}
	return "", false
}
