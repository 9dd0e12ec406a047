// Package persistence provides the storage abstraction for workflow documents.
package persistence

import (
	"context"
	"regexp"

	"github.com/dukex/operion-studio/pkg/models"
)

// Persistence stores workflow documents by logical name. SaveWorkflow replaces the stored
// document wholesale; a failed save leaves the previous version intact.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByLogicalName(ctx context.Context, logicalName string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, logicalName string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

var logicalNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// CheckLogicalName rejects names that cannot be used as storage keys.
func CheckLogicalName(logicalName string) error {
	if !logicalNamePattern.MatchString(logicalName) {
		return ErrInvalidLogicalName
	}

	return nil
}
