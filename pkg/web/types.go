// Package web provides HTTP request and response types for the studio API.
package web

import (
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/services"
)

// OpenSessionRequest opens an editor session on a workflow. Unknown names start a blank document.
type OpenSessionRequest struct {
	LogicalName string `json:"logical_name" validate:"required,max=255"`
}

// SelectionRequest changes the focus, the insert mode, or both.
type SelectionRequest struct {
	Selection *string `json:"selection,omitempty"`
	Mode      *string `json:"mode,omitempty"      validate:"omitempty,oneof=before_selected after_selected into_true_branch into_false_branch root_start root_end"`
}

// InsertStepRequest inserts a step built from a template. Selection and Mode default to the
// session's current focus and insert mode.
type InsertStepRequest struct {
	TemplateID string  `json:"template_id"         validate:"required"`
	Selection  *string `json:"selection,omitempty"`
	Mode       *string `json:"mode,omitempty"      validate:"omitempty,oneof=before_selected after_selected into_true_branch into_false_branch root_start root_end"`
}

// MoveStepRequest relocates a step relative to Target ("trigger" or a step id).
type MoveStepRequest struct {
	Target string `json:"target" validate:"required"`
	Mode   string `json:"mode"   validate:"required,oneof=before_selected after_selected into_true_branch into_false_branch root_start root_end"`
}

// UpdateStepRequest edits step fields. Only the fields present are changed.
type UpdateStepRequest struct {
	Name          *string        `json:"name,omitempty"          validate:"omitempty,max=255"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Predicate     *string        `json:"predicate,omitempty"`
}

// ConfigureTriggerRequest replaces the trigger. Type is checked by the validation engine, not here,
// so documents with unsupported trigger types still surface as issues.
type ConfigureTriggerRequest struct {
	Type          models.TriggerType `json:"type"                    validate:"max=64"`
	Configuration map[string]any     `json:"configuration,omitempty"`
}

// UpdateWorkflowRequest patches document settings.
type UpdateWorkflowRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
	MaxAttempts *int    `json:"max_attempts,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

type SaveRequest struct {
	Retry bool `json:"retry"`
}

// ExecuteRequest starts a test run. Payload is the raw text typed by the user.
type ExecuteRequest struct {
	Payload  string `json:"payload"`
	UseDraft bool   `json:"use_draft"`
	Retry    bool   `json:"retry"`
}

type StepResponse struct {
	StepID  string                 `json:"step_id"`
	Session *services.SessionState `json:"session"`
}

type IssuesResponse struct {
	Issues     []models.ValidationIssue `json:"issues"`
	ErrorCount int                      `json:"error_count"`
	CanSave    bool                     `json:"can_save"`
}

type ExecuteResponse struct {
	Result  *models.RunResult      `json:"result"`
	Session *services.SessionState `json:"session"`
}
