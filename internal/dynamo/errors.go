package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// StepError wraps an error with the loop and step it happened in.
type StepError struct {
	Loop    string
	Step    uint64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d: %v", e.Loop, e.Step, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
