// Package events defines the notifications published by the studio.
package events

import (
	"time"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every studio event.
const Topic = "operion.studio.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowSavedEvent        EventType = "workflow.saved"
	WorkflowTestExecutedEvent EventType = "workflow.test_executed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	LogicalName string    `json:"logical_name"`
	SessionID   string    `json:"session_id,omitempty"`
}

// NewBaseEvent creates a new base event with common fields.
func NewBaseEvent(eventType EventType, logicalName, sessionID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   at.UTC(),
		LogicalName: logicalName,
		SessionID:   sessionID,
	}
}

// WorkflowSaved is published after a workflow document has been replaced in storage.
type WorkflowSaved struct {
	BaseEvent

	DisplayName string             `json:"display_name"`
	TriggerType models.TriggerType `json:"trigger_type"`
	StepCount   int                `json:"step_count"`
	Enabled     bool               `json:"enabled"`
}

func (e WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

// NewWorkflowSaved summarises a stored workflow. Nested steps count towards StepCount.
func NewWorkflowSaved(sessionID string, workflow *models.Workflow, stepCount int) *WorkflowSaved {
	return &WorkflowSaved{
		BaseEvent:   NewBaseEvent(WorkflowSavedEvent, workflow.LogicalName, sessionID, workflow.UpdatedAt),
		DisplayName: workflow.DisplayName,
		TriggerType: workflow.Trigger.Type,
		StepCount:   stepCount,
		Enabled:     workflow.Enabled,
	}
}

// WorkflowTestExecuted is published when a test run returns a result.
type WorkflowTestExecuted struct {
	BaseEvent

	RunID   string            `json:"run_id"`
	Outcome models.RunOutcome `json:"outcome"`
	Draft   bool              `json:"draft"`
	Error   string            `json:"error,omitempty"`
}

func (e WorkflowTestExecuted) GetType() EventType {
	return WorkflowTestExecutedEvent
}

func NewWorkflowTestExecuted(sessionID, logicalName string, draft bool, result *models.RunResult, at time.Time) *WorkflowTestExecuted {
	return &WorkflowTestExecuted{
		BaseEvent: NewBaseEvent(WorkflowTestExecutedEvent, logicalName, sessionID, at),
		RunID:     result.RunID,
		Outcome:   result.Outcome,
		Draft:     draft,
		Error:     result.Error,
	}
}
