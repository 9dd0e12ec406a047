package validation

import (
	"testing"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type issueRef struct {
	Severity models.Severity
	Code     string
	Path     string
}

func refs(issues []models.ValidationIssue) []issueRef {
	out := make([]issueRef, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issueRef{Severity: issue.Severity, Code: issue.Code, Path: issue.Path.String()})
	}

	return out
}

func newValidator() *Validator {
	return New(catalog.Default())
}

func action(id, template, actionType string, config map[string]any) *models.ActionStep {
	return testutil.CreateTestAction(id, testutil.WithTemplate(template, actionType), testutil.WithConfig(config))
}

func TestValidate_FreshDocument(t *testing.T) {
	issues := newValidator().Validate(models.NewWorkflow("demo"), testutil.CreateTestMetadata())

	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityError, issues[0].Severity)
	assert.Equal(t, CodeTriggerUnconfigured, issues[0].Code)
	assert.Equal(t, models.TriggerPath(), issues[0].Path)
	assert.Equal(t, 1, ErrorCount(issues))
	assert.False(t, CanSave(issues))
}

func TestValidate_ValidDocument(t *testing.T) {
	doc := testutil.CreateTestWorkflow("order_followup",
		testutil.CreateTestAction("step_1"),
		testutil.CreateTestCondition("step_2",
			models.Steps{testutil.CreateTestAction("step_3")},
			models.Steps{testutil.CreateTestAction("step_4")},
		),
	)

	issues := newValidator().Validate(doc, testutil.CreateTestMetadata())

	assert.Empty(t, issues)
	assert.True(t, CanSave(issues))
}

func TestValidate_Settings(t *testing.T) {
	tests := []struct {
		name        string
		logicalName string
		maxAttempts int
		expected    []issueRef
	}{
		{
			name:        "valid",
			logicalName: "nightly_sync_2",
			maxAttempts: 3,
			expected:    []issueRef{},
		},
		{
			name:        "zero attempts",
			logicalName: "demo",
			maxAttempts: 0,
			expected:    []issueRef{{models.SeverityError, CodeMaxAttemptsInvalid, "workflow"}},
		},
		{
			name:        "uppercase and spaces",
			logicalName: "Order Sync",
			maxAttempts: 1,
			expected:    []issueRef{{models.SeverityError, CodeLogicalNameInvalid, "workflow"}},
		},
		{
			name:        "empty name and negative attempts",
			logicalName: "",
			maxAttempts: -1,
			expected: []issueRef{
				{models.SeverityError, CodeMaxAttemptsInvalid, "workflow"},
				{models.SeverityError, CodeLogicalNameInvalid, "workflow"},
			},
		},
		{
			name:        "dash is not allowed",
			logicalName: "order-sync",
			maxAttempts: 1,
			expected:    []issueRef{{models.SeverityError, CodeLogicalNameInvalid, "workflow"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.CreateTestWorkflow(tt.logicalName)
			doc.MaxAttempts = tt.maxAttempts

			assert.Equal(t, tt.expected, refs(newValidator().Validate(doc, nil)))
		})
	}
}

func TestValidate_Trigger(t *testing.T) {
	tests := []struct {
		name     string
		trigger  models.Trigger
		expected []string
	}{
		{name: "manual", trigger: models.Trigger{Type: models.TriggerManual}, expected: []string{}},
		{name: "webhook", trigger: models.Trigger{Type: models.TriggerWebhook}, expected: []string{}},
		{
			name:     "valid schedule",
			trigger:  models.Trigger{Type: models.TriggerSchedule, Configuration: map[string]any{"cron": "*/5 * * * *"}},
			expected: []string{},
		},
		{
			name:     "schedule without cron",
			trigger:  models.Trigger{Type: models.TriggerSchedule, Configuration: map[string]any{"cron": "  "}},
			expected: []string{CodeConfigRequired},
		},
		{
			name:     "schedule with invalid cron",
			trigger:  models.Trigger{Type: models.TriggerSchedule, Configuration: map[string]any{"cron": "every monday"}},
			expected: []string{CodeTriggerInvalid},
		},
		{
			name:     "record event on known entity",
			trigger:  models.Trigger{Type: models.TriggerRecordEvent, Configuration: map[string]any{"entity": "order", "event": "created"}},
			expected: []string{},
		},
		{
			name:     "record event on unknown entity",
			trigger:  models.Trigger{Type: models.TriggerRecordEvent, Configuration: map[string]any{"entity": "invoice"}},
			expected: []string{CodeEntityUnknown},
		},
		{
			name:     "record event with unknown event",
			trigger:  models.Trigger{Type: models.TriggerRecordEvent, Configuration: map[string]any{"entity": "order", "event": "archived"}},
			expected: []string{CodeTriggerInvalid},
		},
		{
			name:     "record event without entity",
			trigger:  models.Trigger{Type: models.TriggerRecordEvent},
			expected: []string{CodeConfigRequired},
		},
		{
			name:     "unknown type",
			trigger:  models.Trigger{Type: models.TriggerType("carrier_pigeon")},
			expected: []string{CodeTriggerUnknownType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.CreateTestWorkflow("demo")
			doc.Trigger = tt.trigger

			issues := newValidator().Validate(doc, testutil.CreateTestMetadata())

			codes := make([]string, 0, len(issues))
			for _, issue := range issues {
				assert.Equal(t, models.TriggerPath(), issue.Path)
				codes = append(codes, issue.Code)
			}

			assert.Equal(t, tt.expected, codes)
		})
	}
}

func TestValidate_StepRules(t *testing.T) {
	tests := []struct {
		name     string
		step     models.Step
		expected []issueRef
	}{
		{
			name: "missing required keys in schema order",
			step: action("s", "send_email", "email.send", map[string]any{"to": "ops@example.com", "subject": "   "}),
			expected: []issueRef{
				{models.SeverityError, CodeConfigRequired, "root[0]"},
				{models.SeverityError, CodeConfigRequired, "root[0]"},
			},
		},
		{
			name:     "enum violation is a warning",
			step:     action("s", "log", "log.write", map[string]any{"message": "hi", "level": "verbose"}),
			expected: []issueRef{{models.SeverityWarning, CodeConfigInvalid, "root[0]"}},
		},
		{
			name: "missing key is reported once",
			step: action("s", "http_request", "http.request", map[string]any{"url": "https://example.com", "method": nil, "timeout": 0}),
			expected: []issueRef{
				{models.SeverityError, CodeConfigRequired, "root[0]"},
				{models.SeverityWarning, CodeConfigInvalid, "root[0]"},
			},
		},
		{
			name:     "empty object counts as missing",
			step:     action("s", "create_record", "record.create", map[string]any{"entity": "order", "fields": map[string]any{}}),
			expected: []issueRef{{models.SeverityError, CodeConfigRequired, "root[0]"}},
		},
		{
			name:     "unknown template skips configuration checks",
			step:     action("s", "teleport", "space.teleport", map[string]any{}),
			expected: []issueRef{{models.SeverityWarning, CodeTemplateUnknown, "root[0]"}},
		},
		{
			name:     "empty predicate",
			step:     &models.ConditionStep{ID: "s", Name: "Check", Template: "condition", Predicate: " "},
			expected: []issueRef{{models.SeverityError, CodePredicateEmpty, "root[0]"}},
		},
		{
			name:     "predicate with syntax error",
			step:     &models.ConditionStep{ID: "s", Name: "Check", Template: "condition", Predicate: "amount >"},
			expected: []issueRef{{models.SeverityError, CodePredicateInvalid, "root[0]"}},
		},
		{
			name:     "predicate that is not boolean",
			step:     &models.ConditionStep{ID: "s", Name: "Check", Template: "condition", Predicate: "1 + 2"},
			expected: []issueRef{{models.SeverityError, CodePredicateInvalid, "root[0]"}},
		},
		{
			name:     "valid predicate",
			step:     &models.ConditionStep{ID: "s", Name: "Check", Template: "condition", Predicate: `status == "paid" && total >= 10`},
			expected: []issueRef{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.CreateTestWorkflow("demo", tt.step)

			issues := newValidator().Validate(doc, testutil.CreateTestMetadata())

			assert.Equal(t, tt.expected, refs(issues))

			for _, issue := range issues {
				assert.Equal(t, "s", issue.StepID)
			}
		})
	}
}

func TestValidate_RequiredKeyMessages(t *testing.T) {
	doc := testutil.CreateTestWorkflow("demo",
		action("s", "send_email", "email.send", map[string]any{"to": "ops@example.com"}))

	issues := newValidator().Validate(doc, nil)

	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, `"subject"`)
	assert.Contains(t, issues[1].Message, `"body"`)
}

func TestValidate_References(t *testing.T) {
	tests := []struct {
		name     string
		step     models.Step
		expected []issueRef
	}{
		{
			name: "unknown entity",
			step: action("s", "update_record", "record.update", map[string]any{
				"entity": "invoice", "record_id": "1", "fields": map[string]any{"amount": 1},
			}),
			expected: []issueRef{{models.SeverityError, CodeEntityUnknown, "root[0]"}},
		},
		{
			name: "unknown field",
			step: action("s", "set_field", "record.set_field", map[string]any{
				"entity": "order", "record_id": "1", "field": "color",
			}),
			expected: []issueRef{{models.SeverityError, CodeFieldUnknown, "root[0]"}},
		},
		{
			name: "field type not accepted by the template",
			step: action("s", "increment_field", "record.increment", map[string]any{
				"entity": "order", "record_id": "1", "field": "status", "amount": 1,
			}),
			expected: []issueRef{{models.SeverityWarning, CodeFieldTypeIncompatible, "root[0]"}},
		},
		{
			name: "field type accepted by the template",
			step: action("s", "increment_field", "record.increment", map[string]any{
				"entity": "order", "record_id": "1", "field": "total", "amount": 1.5,
			}),
			expected: []issueRef{},
		},
		{
			name: "field values checked in name order",
			step: action("s", "create_record", "record.create", map[string]any{
				"entity": "order",
				"fields": map[string]any{
					"status":     "open",
					"quantity":   2.5,
					"bogus":      1,
					"paid":       "yes",
					"shipped_at": "{{.trigger.date}}",
					"total":      99,
				},
			}),
			expected: []issueRef{
				{models.SeverityError, CodeFieldUnknown, "root[0]"},
				{models.SeverityWarning, CodeFieldTypeIncompatible, "root[0]"},
				{models.SeverityWarning, CodeFieldTypeIncompatible, "root[0]"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.CreateTestWorkflow("demo", tt.step)

			assert.Equal(t, tt.expected, refs(newValidator().Validate(doc, testutil.CreateTestMetadata())))
		})
	}
}

func TestValidate_NilMetadataSkipsReferences(t *testing.T) {
	doc := testutil.CreateTestWorkflow("demo", action("s", "set_field", "record.set_field", map[string]any{
		"entity": "invoice", "record_id": "1", "field": "color",
	}))

	assert.Empty(t, newValidator().Validate(doc, nil))
}

func TestValidate_PreOrder(t *testing.T) {
	missingMessage := map[string]any{"level": "info"}

	doc := testutil.CreateTestWorkflow("demo",
		action("a", "log", "log.write", missingMessage),
		&models.ConditionStep{
			ID:       "c",
			Name:     "Check",
			Template: "condition",
			TrueBranch: models.Steps{
				action("b", "log", "log.write", missingMessage),
			},
			FalseBranch: models.Steps{
				action("d", "log", "log.write", map[string]any{"message": "x", "level": "loud"}),
			},
		},
		action("e", "teleport", "space.teleport", nil),
	)
	doc.Trigger = models.Trigger{}
	doc.MaxAttempts = 0

	issues := newValidator().Validate(doc, testutil.CreateTestMetadata())

	assert.Equal(t, []issueRef{
		{models.SeverityError, CodeTriggerUnconfigured, "trigger"},
		{models.SeverityError, CodeMaxAttemptsInvalid, "workflow"},
		{models.SeverityError, CodeConfigRequired, "root[0]"},
		{models.SeverityError, CodePredicateEmpty, "root[1]"},
		{models.SeverityError, CodeConfigRequired, "root[1].true[0]"},
		{models.SeverityWarning, CodeConfigInvalid, "root[1].false[0]"},
		{models.SeverityWarning, CodeTemplateUnknown, "root[2]"},
	}, refs(issues))
	assert.Equal(t, 5, ErrorCount(issues))

	stepIDs := make([]string, 0)
	for _, issue := range issues[2:] {
		stepIDs = append(stepIDs, issue.StepID)
	}

	assert.Equal(t, []string{"a", "c", "b", "d", "e"}, stepIDs)
}

func TestValidate_StepIDs(t *testing.T) {
	tests := []struct {
		name     string
		steps    models.Steps
		expected []issueRef
	}{
		{
			name: "duplicate at root",
			steps: models.Steps{
				testutil.CreateTestAction("step_1"),
				testutil.CreateTestAction("step_1"),
			},
			expected: []issueRef{{models.SeverityError, CodeStepIDDuplicate, "root[1]"}},
		},
		{
			name: "duplicate inside a branch",
			steps: models.Steps{
				testutil.CreateTestCondition("step_1",
					models.Steps{testutil.CreateTestAction("step_2")},
					models.Steps{testutil.CreateTestAction("step_2")},
				),
			},
			expected: []issueRef{{models.SeverityError, CodeStepIDDuplicate, "root[0].false[0]"}},
		},
		{
			name:     "blank id",
			steps:    models.Steps{testutil.CreateTestAction("")},
			expected: []issueRef{{models.SeverityError, CodeStepIDInvalid, "root[0]"}},
		},
		{
			name:     "reserved id",
			steps:    models.Steps{testutil.CreateTestAction(models.TriggerSelectionValue)},
			expected: []issueRef{{models.SeverityError, CodeStepIDInvalid, "root[0]"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.CreateTestWorkflow("demo", tt.steps...)

			issues := newValidator().Validate(doc, testutil.CreateTestMetadata())

			assert.Equal(t, tt.expected, refs(issues))
			assert.False(t, CanSave(issues))
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	doc := testutil.CreateTestWorkflow("demo",
		action("s", "create_record", "record.create", map[string]any{
			"entity": "order",
			"fields": map[string]any{"a": 1, "b": 2, "c": 3, "paid": 1, "status": true, "quantity": "x"},
		}),
		&models.ConditionStep{ID: "c", Name: "Check", Template: "condition", Predicate: "amount >"},
	)

	v := newValidator()
	metadata := testutil.CreateTestMetadata()
	first := v.Validate(doc, metadata)

	for range 20 {
		assert.Equal(t, first, v.Validate(doc, metadata))
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		value    any
		expected bool
	}{
		{nil, true},
		{"", true},
		{" \t", true},
		{map[string]any{}, true},
		{[]any{}, true},
		{"x", false},
		{0, false},
		{false, false},
		{map[string]any{"k": 1}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isBlank(tt.value), "%#v", tt.value)
	}
}
