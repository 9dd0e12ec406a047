package steptree

import (
	"errors"
	"fmt"
)

// Mutation contract violations. The editor never produces them through legal interaction
// paths; the engine still reports them instead of corrupting the tree.
var (
	// ErrInvalidInsertion indicates a destination that cannot hold the step.
	ErrInvalidInsertion = errors.New("invalid insertion")

	// ErrStepNotFound indicates the referenced step id is not in the tree.
	ErrStepNotFound = errors.New("step not found")

	// ErrInvalidEdit indicates a field edit that does not apply to the step kind.
	ErrInvalidEdit = errors.New("invalid edit")
)

// MutationError wraps mutation failures with the operation and step involved.
type MutationError struct {
	Op     string // Operation being performed (e.g., "insert", "move", "delete")
	StepID string // Step the operation was anchored on, if any
	Err    error  // Underlying error
}

func (e *MutationError) Error() string {
	if e.StepID == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s failed for step %s: %v", e.Op, e.StepID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for mutation errors.
func (e *MutationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newMutationError(op, stepID string, err error) *MutationError {
	return &MutationError{Op: op, StepID: stepID, Err: err}
}

// IsInvalidInsertion checks if an error indicates an illegal destination.
func IsInvalidInsertion(err error) bool {
	return errors.Is(err, ErrInvalidInsertion)
}

// IsInvalidEdit checks if an error indicates a field edit the step kind does not support.
func IsInvalidEdit(err error) bool {
	return errors.Is(err, ErrInvalidEdit)
}

// IsStepNotFound checks if an error indicates a missing step.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsMutationError checks if an error came from the mutation engine.
func IsMutationError(err error) bool {
	var mutationErr *MutationError

	return errors.As(err, &mutationErr)
}
