// Package services coordinates editor sessions with storage, the execution endpoint and the event bus.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/persistence"
	"github.com/dukex/operion-studio/pkg/steptree"
)

var (
	// ErrInvalidRequest indicates malformed input (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSessionNotFound indicates an unknown or closed session id (404 Not Found).
	ErrSessionNotFound = errors.New("session not found")

	// ErrRequestSuperseded is returned to the caller whose save or execute was overtaken by a
	// retry; its outcome was discarded (409 Conflict).
	ErrRequestSuperseded = errors.New("request superseded by a newer attempt")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, editor.ErrUnknownInsertMode) ||
		errors.Is(err, editor.ErrTemplateNotFound) ||
		execution.IsPayloadParseError(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		steptree.IsStepNotFound(err) ||
		persistence.IsWorkflowNotFound(err)
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRequestSuperseded) ||
		editor.IsRequestInFlight(err) ||
		steptree.IsInvalidInsertion(err) ||
		steptree.IsInvalidEdit(err) ||
		errors.Is(err, editor.ErrNothingToUndo) ||
		errors.Is(err, editor.ErrNothingToRedo)
}
