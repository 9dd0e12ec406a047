package editor

import (
	"errors"
	"fmt"

	"github.com/dukex/operion-studio/pkg/models"
)

var (
	// ErrTemplateNotFound indicates an insertion from a template the catalog does not know.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrNothingToUndo and ErrNothingToRedo are returned when the history cursor is at an end.
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrRequestInFlight indicates a save or execute was started while one of the same kind is pending.
	ErrRequestInFlight = errors.New("request already in flight")

	// ErrValidationFailed indicates the document has error-severity issues and cannot be saved.
	ErrValidationFailed = errors.New("workflow has validation errors")

	// ErrUnknownInsertMode indicates an insert mode outside models.InsertModes.
	ErrUnknownInsertMode = errors.New("unknown insert mode")
)

// ValidationFailedError carries the issues that blocked a save.
type ValidationFailedError struct {
	Issues []models.ValidationIssue
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("%v: %d error(s)", ErrValidationFailed, models.CountErrors(e.Issues))
}

func (e *ValidationFailedError) Is(target error) bool {
	return target == ErrValidationFailed
}

// IsRequestInFlight checks if an error indicates a pending request of the same kind.
func IsRequestInFlight(err error) bool {
	return errors.Is(err, ErrRequestInFlight)
}

// IsValidationFailed checks if an error indicates a save blocked by validation.
func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
