package services_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/operion-studio/pkg/catalog"
	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/events"
	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/mocks"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/dukex/operion-studio/pkg/persistence"
	"github.com/dukex/operion-studio/pkg/services"
	"github.com/dukex/operion-studio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	studio      *services.Studio
	persistence *mocks.MockPersistence
	executor    *mocks.MockExecutor
	bus         *mocks.MockEventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	f := &fixture{
		persistence: &mocks.MockPersistence{},
		executor:    &mocks.MockExecutor{},
		bus:         &mocks.MockEventBus{},
	}

	f.studio = services.NewStudio(services.Config{
		Persistence: f.persistence,
		Tester:      execution.NewTester(f.executor, logger),
		Publisher:   f.bus,
		Metadata:    testutil.CreateTestMetadata(),
		Logger:      logger,
	})

	t.Cleanup(func() {
		f.persistence.AssertExpectations(t)
		f.executor.AssertExpectations(t)
		f.bus.AssertExpectations(t)
	})

	return f
}

func (f *fixture) openStored(t *testing.T, workflow models.Workflow) *services.SessionState {
	t.Helper()

	f.persistence.On("WorkflowByLogicalName", mock.Anything, workflow.LogicalName).Return(&workflow, nil).Once()

	state, err := f.studio.Open(t.Context(), workflow.LogicalName)
	require.NoError(t, err)

	return state
}

func TestStudio_OpenMissingWorkflowStartsBlank(t *testing.T) {
	f := newFixture(t)

	f.persistence.On("WorkflowByLogicalName", mock.Anything, "new_flow").
		Return(nil, persistence.NewWorkflowError("WorkflowByLogicalName", "new_flow", persistence.ErrWorkflowNotFound))

	state, err := f.studio.Open(t.Context(), "new_flow")
	require.NoError(t, err)

	assert.NotEmpty(t, state.ID)
	assert.Equal(t, "new_flow", state.Workflow.LogicalName)
	assert.Empty(t, state.Workflow.Steps)
	assert.Equal(t, 1, state.ErrorCount)
	assert.False(t, state.CanSave)
	assert.Equal(t, models.SelectTrigger(), state.Selection)
	assert.Equal(t, editor.RequestIdle, state.Save.State)
	assert.Equal(t, 1, f.studio.Len())
}

func TestStudio_OpenStoredWorkflow(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("order_sync", testutil.CreateTestAction("step_3")))

	assert.Len(t, state.Workflow.Steps, 1)
	assert.True(t, state.CanSave)
	assert.False(t, state.Dirty)

	// Ids continue after the highest stored one.
	state, err := f.studio.Edit(state.ID, func(s *editor.Session) error {
		_, err := s.InsertTemplate("log")

		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "step_4", state.Workflow.Steps[0].StepID())
	assert.True(t, state.Dirty)
}

func TestStudio_OpenErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.studio.Open(t.Context(), "Not Valid")
	assert.True(t, services.IsValidationError(err))

	boom := errors.New("connection refused")
	f.persistence.On("WorkflowByLogicalName", mock.Anything, "broken").Return(nil, boom)

	_, err = f.studio.Open(t.Context(), "broken")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.studio.Len())
}

func TestStudio_UnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.studio.State("missing")
	assert.True(t, services.IsNotFoundError(err))

	_, err = f.studio.Save(t.Context(), "missing", false)
	assert.True(t, services.IsNotFoundError(err))

	_, _, err = f.studio.Execute(t.Context(), "missing", "{}", false, false)
	assert.True(t, services.IsNotFoundError(err))

	assert.True(t, services.IsNotFoundError(f.studio.Close("missing")))
}

func TestStudio_EditReturnsStateOnError(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo", testutil.CreateTestAction("step_1")))

	after, err := f.studio.Edit(state.ID, func(s *editor.Session) error {
		return s.Delete("ghost")
	})

	assert.True(t, services.IsNotFoundError(err))
	require.NotNil(t, after)
	assert.Len(t, after.Workflow.Steps, 1)
}

func TestStudio_SaveBlockedByValidation(t *testing.T) {
	f := newFixture(t)

	f.persistence.On("WorkflowByLogicalName", mock.Anything, "demo").
		Return(nil, persistence.ErrWorkflowNotFound)

	state, err := f.studio.Open(t.Context(), "demo")
	require.NoError(t, err)

	_, err = f.studio.Save(t.Context(), state.ID, false)

	var failed *editor.ValidationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 1, models.CountErrors(failed.Issues))
	f.persistence.AssertNotCalled(t, "SaveWorkflow", mock.Anything, mock.Anything)
}

func TestStudio_Save(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo", testutil.CreateTestAction("step_1")))

	_, err := f.studio.Edit(state.ID, func(s *editor.Session) error {
		return s.RenameStep("step_1", "Write log")
	})
	require.NoError(t, err)

	f.persistence.On("SaveWorkflow", mock.Anything, mock.MatchedBy(func(w *models.Workflow) bool {
		return w.LogicalName == "demo" && w.Steps[0].DisplayName() == "Write log"
	})).Return(nil).Once()

	f.bus.On("Publish", mock.Anything, "demo", mock.MatchedBy(func(e *events.WorkflowSaved) bool {
		return e.SessionID == state.ID && e.StepCount == 1
	})).Return(nil).Once()

	saved, err := f.studio.Save(t.Context(), state.ID, false)
	require.NoError(t, err)

	assert.Equal(t, editor.RequestSucceeded, saved.Save.State)
	assert.False(t, saved.Dirty)
}

func TestStudio_SaveFailureKeepsDocument(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo", testutil.CreateTestAction("step_1")))

	boom := errors.New("disk full")
	f.persistence.On("SaveWorkflow", mock.Anything, mock.Anything).Return(boom).Once()

	failed, err := f.studio.Save(t.Context(), state.ID, false)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, editor.RequestFailed, failed.Save.State)
	assert.Equal(t, "disk full", failed.Save.Error)
	assert.Len(t, failed.Workflow.Steps, 1)
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestStudio_PublishFailureDoesNotFailSave(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo"))

	f.persistence.On("SaveWorkflow", mock.Anything, mock.Anything).Return(nil).Once()
	f.bus.On("Publish", mock.Anything, "demo", mock.Anything).Return(errors.New("broker down")).Once()

	_, err := f.studio.Save(t.Context(), state.ID, false)
	assert.NoError(t, err)
}

func TestStudio_SaveInFlightAndRetry(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo"))

	started := make(chan struct{})
	release := make(chan struct{})

	f.persistence.On("SaveWorkflow", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()
	f.persistence.On("SaveWorkflow", mock.Anything, mock.Anything).Return(nil).Once()
	f.bus.On("Publish", mock.Anything, "demo", mock.Anything).Return(nil).Once()

	var (
		wg       sync.WaitGroup
		firstErr error
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		_, firstErr = f.studio.Save(context.Background(), state.ID, false)
	}()

	<-started

	_, err := f.studio.Save(t.Context(), state.ID, false)
	assert.True(t, editor.IsRequestInFlight(err))
	assert.True(t, services.IsConflictError(err))

	retried, err := f.studio.Save(t.Context(), state.ID, true)
	require.NoError(t, err)
	assert.Equal(t, editor.RequestSucceeded, retried.Save.State)

	close(release)
	wg.Wait()

	assert.ErrorIs(t, firstErr, services.ErrRequestSuperseded)

	after, err := f.studio.State(state.ID)
	require.NoError(t, err)
	assert.Equal(t, editor.RequestSucceeded, after.Save.State)
	assert.Equal(t, retried.Save.Token, after.Save.Token)
}

func TestStudio_ExecuteMalformedPayload(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo"))

	_, _, err := f.studio.Execute(t.Context(), state.ID, `{"amount": 10`, false, false)
	assert.True(t, execution.IsPayloadParseError(err))
	assert.True(t, services.IsValidationError(err))

	after, err := f.studio.State(state.ID)
	require.NoError(t, err)
	assert.Equal(t, editor.RequestIdle, after.Execute.State)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestStudio_ExecuteDraft(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo", testutil.CreateTestAction("step_1")))

	_, err := f.studio.Edit(state.ID, func(s *editor.Session) error {
		_, err := s.InsertTemplate("log")

		return err
	})
	require.NoError(t, err)

	result := &models.RunResult{RunID: "run-1", Outcome: models.RunOutcomeSuccess, FinishedAt: time.Now()}

	f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(r execution.Request) bool {
		return r.LogicalName == "demo" && r.Workflow != nil && len(r.Workflow.Steps) == 2 && r.Payload["amount"] == float64(10)
	})).Return(result, nil).Once()
	f.bus.On("Publish", mock.Anything, "demo", mock.MatchedBy(func(e *events.WorkflowTestExecuted) bool {
		return e.RunID == "run-1" && e.Draft
	})).Return(nil).Once()

	got, after, err := f.studio.Execute(t.Context(), state.ID, `{"amount": 10}`, true, false)
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, editor.RequestSucceeded, after.Execute.State)
	assert.Equal(t, "run-1", after.LastRun.RunID)
	assert.True(t, after.Dirty, "a test run never saves")
}

func TestStudio_ExecuteStoredVersion(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo"))

	f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(r execution.Request) bool {
		return r.Workflow == nil
	})).Return(nil, &execution.RequestError{Op: "execute", StatusCode: 502, Err: execution.ErrUnexpectedStatus}).Once()

	_, after, err := f.studio.Execute(t.Context(), state.ID, "", false, false)
	assert.True(t, execution.IsRequestError(err))
	assert.Equal(t, editor.RequestFailed, after.Execute.State)
	assert.Nil(t, after.LastRun)
}

func TestStudio_Close(t *testing.T) {
	f := newFixture(t)

	state := f.openStored(t, testutil.CreateTestWorkflow("demo"))

	require.NoError(t, f.studio.Close(state.ID))

	_, err := f.studio.State(state.ID)
	assert.True(t, services.IsNotFoundError(err))
	assert.Equal(t, 0, f.studio.Len())
}

func TestStudio_UpdateMetadata(t *testing.T) {
	f := newFixture(t)

	action := testutil.CreateTestAction("step_1", testutil.WithTemplate("set_field", "record.set_field"),
		testutil.WithConfig(map[string]any{"entity": "order", "record_id": "{{trigger.id}}", "field": "status", "value": "paid"}))
	state := f.openStored(t, testutil.CreateTestWorkflow("demo", action))
	require.Equal(t, 0, state.ErrorCount)

	f.studio.UpdateMetadata(&models.MetadataContext{})

	after, err := f.studio.State(state.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.ErrorCount)
}

func TestStudio_Templates(t *testing.T) {
	f := newFixture(t)

	all := f.studio.Templates(catalog.Filter{})
	assert.NotEmpty(t, all)

	ids := make([]string, 0)
	for _, template := range f.studio.Templates(catalog.Filter{Query: "log"}) {
		ids = append(ids, template.ID)
	}

	assert.Contains(t, ids, "log")

	assert.NotEmpty(t, f.studio.Categories())
}

func TestStudio_HealthCheck(t *testing.T) {
	f := newFixture(t)

	f.persistence.On("HealthCheck", mock.Anything).Return(nil).Once()

	_, ok := f.studio.HealthCheck(t.Context())
	assert.True(t, ok)

	f.persistence.On("HealthCheck", mock.Anything).Return(errors.New("down")).Once()

	message, ok := f.studio.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "down")
}
