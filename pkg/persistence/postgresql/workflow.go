package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/persistence"
)

const selectWorkflowColumns = `
	SELECT
		logical_name
	  , display_name
	  , description
	  , max_attempts
	  , enabled
	  , trigger
	  , steps
	  , updated_at
	FROM workflows
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all live workflows ordered by logical name.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkflowColumns+`
		WHERE deleted_at IS NULL
		ORDER BY logical_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func(ctx context.Context, r *WorkflowRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflows: %w", err)
	}

	return workflows, nil
}

// GetByLogicalName returns a live workflow, or ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByLogicalName(ctx context.Context, logicalName string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, selectWorkflowColumns+`
		WHERE logical_name = $1 AND deleted_at IS NULL
	`, logicalName)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByLogicalName", logicalName, persistence.ErrWorkflowNotFound)
		}

		return nil, err
	}

	return workflow, nil
}

// Save upserts the workflow. Saving a soft-deleted logical name brings it back.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if err := persistence.CheckLogicalName(workflow.LogicalName); err != nil {
		return persistence.NewWorkflowError("Save", workflow.LogicalName, err)
	}

	triggerJSON, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	steps := workflow.Steps
	if steps == nil {
		steps = models.Steps{}
	}

	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO workflows (logical_name, display_name, description, max_attempts, enabled,
trigger_type, trigger, steps, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, NULL)
		ON CONFLICT (logical_name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			max_attempts = EXCLUDED.max_attempts,
			enabled = EXCLUDED.enabled,
			trigger_type = EXCLUDED.trigger_type,
			trigger = EXCLUDED.trigger,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.LogicalName,
		workflow.DisplayName,
		workflow.Description,
		workflow.MaxAttempts,
		workflow.Enabled,
		string(workflow.Trigger.Type),
		triggerJSON,
		stepsJSON,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.LogicalName, err)
	}

	workflow.UpdatedAt = now

	return nil
}

// Delete soft deletes a workflow by setting deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, logicalName string) error {
	query := `UPDATE workflows SET deleted_at = NOW() WHERE logical_name = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, logicalName)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", logicalName, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		triggerJSON []byte
		stepsJSON   []byte
	)

	err := scanner.Scan(
		&workflow.LogicalName,
		&workflow.DisplayName,
		&workflow.Description,
		&workflow.MaxAttempts,
		&workflow.Enabled,
		&triggerJSON,
		&stepsJSON,
		&workflow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	err = json.Unmarshal(triggerJSON, &workflow.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger of %s: %w", workflow.LogicalName, err)
	}

	err = json.Unmarshal(stepsJSON, &workflow.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps of %s: %w", workflow.LogicalName, err)
	}

	return &workflow, nil
}
