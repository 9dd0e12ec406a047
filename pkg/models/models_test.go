package models_test

import (
	"encoding/json"
	"testing"

	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_CloneIsIndependent(t *testing.T) {
	original := testutil.CreateTestWorkflow("demo",
		testutil.CreateTestCondition("step_1", models.Steps{testutil.CreateTestAction("step_2")}, nil),
	)
	original.Trigger.Configuration = map[string]any{"entity": "orders"}

	clone := original.Clone()
	clone.Trigger.Configuration["entity"] = "customers"

	condition := clone.Steps[0].(*models.ConditionStep)
	condition.TrueBranch[0].(*models.ActionStep).Configuration["message"] = "changed"

	assert.Equal(t, "orders", original.Trigger.Configuration["entity"])

	originalAction := original.Steps[0].(*models.ConditionStep).TrueBranch[0].(*models.ActionStep)
	assert.Equal(t, "test", originalAction.Configuration["message"])
}

func TestSteps_JSONKeepsKinds(t *testing.T) {
	steps := models.Steps{
		testutil.CreateTestCondition("step_1",
			models.Steps{testutil.CreateTestAction("step_2")},
			models.Steps{testutil.CreateTestAction("step_3")},
		),
		testutil.CreateTestAction("step_4"),
	}

	data, err := json.Marshal(steps)
	require.NoError(t, err)

	var decoded models.Steps
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded, 2)
	assert.Equal(t, models.StepKindCondition, decoded[0].Kind())
	assert.Equal(t, models.StepKindAction, decoded[1].Kind())

	condition := decoded[0].(*models.ConditionStep)
	assert.Equal(t, "amount > 100", condition.Predicate)
	assert.Equal(t, "step_2", condition.TrueBranch[0].StepID())
	assert.Equal(t, "step_3", condition.FalseBranch[0].StepID())
}

func TestConditionStep_EmptyBranchesEncodeAsArrays(t *testing.T) {
	data, err := json.Marshal(&models.ConditionStep{ID: "step_1", Template: "condition"})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"true_branch":[]`)
	assert.Contains(t, string(data), `"false_branch":[]`)
	assert.Contains(t, string(data), `"kind":"condition"`)
}

func TestUnmarshalStep_UnknownKind(t *testing.T) {
	_, err := models.UnmarshalStep([]byte(`{"kind":"loop","id":"step_1"}`))

	assert.ErrorIs(t, err, models.ErrUnknownStepKind)
}

func TestConditionStep_WithBranch(t *testing.T) {
	condition := testutil.CreateTestCondition("step_1", nil, nil)

	updated, err := condition.WithBranch(models.BranchFalse, models.Steps{testutil.CreateTestAction("step_2")})
	require.NoError(t, err)

	assert.Empty(t, condition.FalseBranch)
	assert.Len(t, updated.(*models.ConditionStep).FalseBranch, 1)

	_, err = condition.WithBranch("maybe", nil)
	assert.Error(t, err)
}

func TestSelection_Text(t *testing.T) {
	assert.True(t, models.ParseSelection("").IsTrigger())
	assert.True(t, models.ParseSelection(models.TriggerSelectionValue).IsTrigger())
	assert.Equal(t, "step_4", models.ParseSelection("step_4").StepID)

	data, err := json.Marshal(struct {
		Selection models.Selection `json:"selection"`
	}{Selection: models.SelectStep("step_4")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"selection":"step_4"}`, string(data))
}

func TestPath_String(t *testing.T) {
	path := models.Path{}.Append(models.BranchRoot, 1).Append(models.BranchTrue, 0)

	assert.Equal(t, "root[1].true[0]", path.String())
	assert.Equal(t, "trigger", models.TriggerPath().String())
	assert.Equal(t, "workflow", models.WorkflowPath().String())
}
