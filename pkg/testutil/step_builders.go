// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/operion-studio/pkg/models"
)

// CreateTestAction creates a log action with default values that can be overridden.
func CreateTestAction(id string, overrides ...func(*models.ActionStep)) *models.ActionStep {
	action := &models.ActionStep{
		ID:            id,
		Name:          "Test Action " + id,
		Template:      "log",
		ActionType:    "log.write",
		Configuration: map[string]any{"message": "test", "level": "info"},
	}

	for _, override := range overrides {
		override(action)
	}

	return action
}

// CreateTestCondition creates a condition step with the given branches.
func CreateTestCondition(id string, trueBranch, falseBranch models.Steps) *models.ConditionStep {
	if trueBranch == nil {
		trueBranch = models.Steps{}
	}

	if falseBranch == nil {
		falseBranch = models.Steps{}
	}

	return &models.ConditionStep{
		ID:          id,
		Name:        "Test Condition " + id,
		Template:    "condition",
		Predicate:   "amount > 100",
		TrueBranch:  trueBranch,
		FalseBranch: falseBranch,
	}
}

// WithTemplate sets the originating template and action type.
func WithTemplate(template, actionType string) func(*models.ActionStep) {
	return func(a *models.ActionStep) {
		a.Template = template
		a.ActionType = actionType
	}
}

// WithConfig sets the action configuration.
func WithConfig(config map[string]any) func(*models.ActionStep) {
	return func(a *models.ActionStep) {
		a.Configuration = config
	}
}

// WithName sets the step name.
func WithName(name string) func(*models.ActionStep) {
	return func(a *models.ActionStep) {
		a.Name = name
	}
}

// CreateTestWorkflow creates a valid, manually triggered workflow holding the given steps.
func CreateTestWorkflow(logicalName string, steps ...models.Step) models.Workflow {
	workflow := models.NewWorkflow(logicalName)
	workflow.Trigger = models.Trigger{Type: models.TriggerManual}
	workflow.Steps = append(models.Steps{}, steps...)

	return workflow
}

// CreateTestMetadata returns a small entity catalog used by validation tests.
func CreateTestMetadata() *models.MetadataContext {
	return &models.MetadataContext{
		Entities: []models.Entity{
			{
				Name: "order",
				Fields: []models.Field{
					{Name: "status", Type: models.FieldTypeString},
					{Name: "total", Type: models.FieldTypeDecimal},
					{Name: "quantity", Type: models.FieldTypeInteger},
					{Name: "paid", Type: models.FieldTypeBoolean},
					{Name: "shipped_at", Type: models.FieldTypeDatetime},
				},
			},
			{
				Name: "customer",
				Fields: []models.Field{
					{Name: "email", Type: models.FieldTypeString},
					{Name: "vip", Type: models.FieldTypeBoolean},
				},
			},
		},
	}
}
