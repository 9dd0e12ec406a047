package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow under <root>/workflows.
type WorkflowRepository struct {
	root string // File system root for storing workflows
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(logicalName string) string {
	return filepath.Join(wr.dir(), logicalName+".json")
}

// GetAll returns every stored workflow ordered by logical name.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	jsonFiles, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	sort.Strings(jsonFiles)

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		logicalName := strings.TrimSuffix(file, ".json")

		workflow, err := wr.GetByLogicalName(ctx, logicalName)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) || persistence.IsInvalidLogicalName(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// GetByLogicalName reads a workflow. Names that are not valid slugs can never have been stored
// and are reported as not found.
func (wr *WorkflowRepository) GetByLogicalName(_ context.Context, logicalName string) (*models.Workflow, error) {
	const op = "GetByLogicalName"

	if persistence.CheckLogicalName(logicalName) != nil {
		return nil, persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
	}

	body, err := os.ReadFile(wr.path(logicalName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", logicalName, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", logicalName, err)
	}

	return &workflow, nil
}

// Save replaces the stored workflow. The document is written to a temporary file first and
// renamed into place, so readers never see a partial write.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	const op = "Save"

	if err := persistence.CheckLogicalName(workflow.LogicalName); err != nil {
		return persistence.NewWorkflowError(op, workflow.LogicalName, err)
	}

	err := os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	workflow.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.LogicalName, err)
	}

	tmp, err := os.CreateTemp(wr.dir(), "."+workflow.LogicalName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for workflow %s: %w", workflow.LogicalName, err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write workflow %s: %w", workflow.LogicalName, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.LogicalName, err)
	}

	if err := os.Rename(tmp.Name(), wr.path(workflow.LogicalName)); err != nil {
		return fmt.Errorf("failed to replace workflow %s: %w", workflow.LogicalName, err)
	}

	return nil
}

// Delete removes a workflow. Deleting a missing workflow reports ErrWorkflowNotFound.
func (wr *WorkflowRepository) Delete(_ context.Context, logicalName string) error {
	const op = "Delete"

	if persistence.CheckLogicalName(logicalName) != nil {
		return persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
	}

	err := os.Remove(wr.path(logicalName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewWorkflowError(op, logicalName, persistence.ErrWorkflowNotFound)
		}

		return fmt.Errorf("failed to delete workflow %s: %w", logicalName, err)
	}

	return nil
}
