// Package models defines the workflow document edited by the studio: trigger, metadata and the step tree.
package models

import (
	"maps"
	"time"
)

// DefaultMaxAttempts is the retry limit assigned to new workflows.
const DefaultMaxAttempts = 1

// Workflow is the document edited in a studio session and persisted by logical name.
type Workflow struct {
	LogicalName string    `json:"logical_name"  validate:"required"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	MaxAttempts int       `json:"max_attempts"`
	Enabled     bool      `json:"enabled"`
	Trigger     Trigger   `json:"trigger"`
	Steps       Steps     `json:"steps"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// NewWorkflow returns a blank workflow: unconfigured trigger and an empty root sequence.
func NewWorkflow(logicalName string) Workflow {
	return Workflow{
		LogicalName: logicalName,
		DisplayName: logicalName,
		MaxAttempts: DefaultMaxAttempts,
		Steps:       Steps{},
	}
}

// Clone returns a copy that shares no mutable state with w.
func (w Workflow) Clone() Workflow {
	clone := w
	clone.Trigger = w.Trigger.Clone()
	clone.Steps = w.Steps.Clone()

	return clone
}

// Trigger describes what starts a workflow run. An empty Type means unconfigured.
type Trigger struct {
	Type          TriggerType    `json:"type"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// TriggerType enumerates the supported trigger kinds.
type TriggerType string

const (
	TriggerUnconfigured TriggerType = ""
	TriggerManual       TriggerType = "manual"
	TriggerSchedule     TriggerType = "schedule"
	TriggerWebhook      TriggerType = "webhook"
	TriggerRecordEvent  TriggerType = "record_event"
)

// TriggerTypes lists every configurable trigger type.
var TriggerTypes = []TriggerType{TriggerManual, TriggerSchedule, TriggerWebhook, TriggerRecordEvent}

// IsConfigured reports whether a trigger type has been chosen.
func (t Trigger) IsConfigured() bool {
	return t.Type != TriggerUnconfigured
}

// Clone returns a copy of the trigger with its own configuration map.
func (t Trigger) Clone() Trigger {
	return Trigger{Type: t.Type, Configuration: CloneConfig(t.Configuration)}
}

// CloneConfig copies a configuration map. Nested values are shared; they are never mutated in place.
func CloneConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}

	return maps.Clone(config)
}
