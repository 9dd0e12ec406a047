package execution_test

import (
	"log/slog"
	"testing"

	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/mocks"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTester_MalformedPayloadSendsNothing(t *testing.T) {
	executor := &mocks.MockExecutor{}
	tester := execution.NewTester(executor, slog.Default())

	result, err := tester.Execute(t.Context(), "demo", "{not valid", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, execution.IsPayloadParseError(err))
	assert.False(t, execution.IsRequestError(err))
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestTester_ForwardsPayload(t *testing.T) {
	executor := &mocks.MockExecutor{}
	tester := execution.NewTester(executor, slog.Default())

	expected := &models.RunResult{
		RunID:   "run-1",
		Outcome: models.RunOutcomeSuccess,
		Trace:   []models.StepTrace{{StepID: "step_1", Status: models.StepStatusSuccess}},
	}

	executor.On("Execute", mock.Anything, execution.Request{
		LogicalName: "demo",
		Payload:     map[string]any{"order_id": "42", "total": 120.5},
	}).Return(expected, nil).Once()

	result, err := tester.Execute(t.Context(), "demo", `{"order_id": "42", "total": 120.5}`, nil)

	require.NoError(t, err)
	assert.Equal(t, expected, result)
	assert.True(t, result.Succeeded())
	executor.AssertExpectations(t)
}

func TestTester_SendsDraftCopy(t *testing.T) {
	executor := &mocks.MockExecutor{}
	tester := execution.NewTester(executor, slog.Default())
	draft := testutil.CreateTestWorkflow("demo", testutil.CreateTestAction("step_1"))

	var sent execution.Request

	executor.On("Execute", mock.Anything, mock.AnythingOfType("execution.Request")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(execution.Request) }).
		Return(&models.RunResult{RunID: "run-2", Outcome: models.RunOutcomeError}, nil).Once()

	result, err := tester.Execute(t.Context(), "demo", "", &draft)
	require.NoError(t, err)
	assert.False(t, result.Succeeded())

	require.NotNil(t, sent.Workflow)
	assert.Equal(t, draft, *sent.Workflow)
	assert.NotSame(t, draft.Steps[0], sent.Workflow.Steps[0])
	assert.Equal(t, map[string]any{}, sent.Payload)
}

func TestTester_PropagatesRequestErrors(t *testing.T) {
	executor := &mocks.MockExecutor{}
	tester := execution.NewTester(executor, slog.Default())

	requestErr := &execution.RequestError{Op: "execute", StatusCode: 503}
	executor.On("Execute", mock.Anything, mock.Anything).Return(nil, requestErr).Once()

	_, err := tester.Execute(t.Context(), "demo", "{}", nil)

	assert.ErrorIs(t, err, requestErr)
	assert.True(t, execution.IsRequestError(err))
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expected  map[string]any
		expectErr bool
	}{
		{name: "object", raw: `{"a": 1, "b": {"c": [true]}}`, expected: map[string]any{"a": 1.0, "b": map[string]any{"c": []any{true}}}},
		{name: "blank", raw: "  \n", expected: map[string]any{}},
		{name: "empty object", raw: "{}", expected: map[string]any{}},
		{name: "truncated", raw: "{not valid", expectErr: true},
		{name: "array", raw: "[1, 2]", expectErr: true},
		{name: "scalar", raw: "42", expectErr: true},
		{name: "trailing data", raw: `{"a": 1} {"b": 2}`, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := execution.ParsePayload(tt.raw)

			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, execution.IsPayloadParseError(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, payload)
		})
	}
}

func TestParsePayload_NonObject(t *testing.T) {
	_, err := execution.ParsePayload(`"text"`)
	assert.ErrorIs(t, err, execution.ErrInvalidPayload)
}
