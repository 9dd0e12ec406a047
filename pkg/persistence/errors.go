// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates no workflow is stored under the given logical name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidLogicalName indicates a logical name that is not a lowercase slug.
	ErrInvalidLogicalName = errors.New("invalid logical name")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op          string // Operation being performed (e.g., "WorkflowByLogicalName", "SaveWorkflow")
	LogicalName string // Workflow logical name if applicable
	Err         error  // Underlying error
	Message     string // Additional context message
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, e.LogicalName, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.LogicalName, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, logicalName string, err error) *WorkflowError {
	return &WorkflowError{
		Op:          op,
		LogicalName: logicalName,
		Err:         err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInvalidLogicalName checks if an error indicates a malformed logical name.
func IsInvalidLogicalName(err error) bool {
	return errors.Is(err, ErrInvalidLogicalName)
}
