package secant

import (
	"errors"
	"fmt"
)

// Domain errors for secant runs.
var (
	// ErrInvalidConfig indicates a non-positive tolerance or iteration cap.
	ErrInvalidConfig = errors.New("secant: invalid configuration")

	// ErrInvalidSeed indicates a seed point with NaN or Inf coordinates.
	ErrInvalidSeed = errors.New("secant: seed point is not finite")

	// ErrNilEvaluator indicates a run was started without a function.
	ErrNilEvaluator = errors.New("secant: evaluator is nil")

	// ErrUnknownStrategy indicates a strategy name outside the supported set.
	ErrUnknownStrategy = errors.New("secant: unknown anti-cycle strategy")
)

// RunError wraps an error with the context of the run that produced it.
type RunError struct {
	ID        string
	Seed0     Point
	Seed1     Point
	Iteration int
	Wrapped   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s (seeds %s, %s) at iteration %d: %v", e.ID, e.Seed0, e.Seed1, e.Iteration, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
