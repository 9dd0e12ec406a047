package execution_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/operion-studio/pkg/execution"
	"github.com/dukex/operion-studio/pkg/models"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, server *httptest.Server, maxFailures uint32) *execution.HTTPExecutor {
	t.Helper()

	executor, err := execution.NewHTTPExecutor(execution.HTTPConfig{
		BaseURL:     server.URL + "/",
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
		Client:      server.Client(),
	}, slog.Default())
	require.NoError(t, err)

	return executor
}

func TestHTTPExecutor_Success(t *testing.T) {
	var received execution.Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/executions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.RunResult{
			RunID:   "run-1",
			Outcome: models.RunOutcomeSuccess,
			Trace: []models.StepTrace{
				{StepID: "step_1", Status: models.StepStatusSuccess, Output: map[string]any{"ok": true}, DurationMS: 3},
				{StepID: "step_2", Status: models.StepStatusSkipped},
			},
		})
	}))
	defer server.Close()

	result, err := newExecutor(t, server, 0).Execute(t.Context(), execution.Request{
		LogicalName: "demo",
		Payload:     map[string]any{"id": "42"},
	})

	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)
	assert.True(t, result.Succeeded())
	require.Len(t, result.Trace, 2)
	assert.Equal(t, models.StepStatusSkipped, result.Trace[1].Status)

	assert.Equal(t, "demo", received.LogicalName)
	assert.Equal(t, map[string]any{"id": "42"}, received.Payload)
	assert.Nil(t, received.Workflow)
}

func TestHTTPExecutor_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "bad request", status: http.StatusBadRequest, retryable: false},
		{name: "not found", status: http.StatusNotFound, retryable: false},
		{name: "throttled", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusInternalServerError, retryable: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "workflow demo is broken", tt.status)
			}))
			defer server.Close()

			_, err := newExecutor(t, server, 0).Execute(t.Context(), execution.Request{LogicalName: "demo"})

			var requestErr *execution.RequestError
			require.ErrorAs(t, err, &requestErr)
			assert.Equal(t, tt.status, requestErr.StatusCode)
			assert.Equal(t, tt.retryable, requestErr.Retryable())
			assert.ErrorIs(t, err, execution.ErrUnexpectedStatus)
			assert.Contains(t, err.Error(), "workflow demo is broken")
		})
	}
}

func TestHTTPExecutor_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	executor := newExecutor(t, server, 0)
	server.Close()

	_, err := executor.Execute(t.Context(), execution.Request{LogicalName: "demo"})

	var requestErr *execution.RequestError
	require.ErrorAs(t, err, &requestErr)
	assert.Equal(t, 0, requestErr.StatusCode)
	assert.True(t, requestErr.Retryable())
}

func TestHTTPExecutor_CircuitOpens(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	executor := newExecutor(t, server, 2)

	for range 2 {
		_, err := executor.Execute(t.Context(), execution.Request{LogicalName: "demo"})
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, executor.State())

	_, err := executor.Execute(t.Context(), execution.Request{LogicalName: "demo"})
	require.Error(t, err)
	assert.True(t, execution.IsCircuitOpen(err))
	assert.True(t, execution.IsRequestError(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPExecutor_ClientErrorsDoNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	executor := newExecutor(t, server, 1)

	for range 3 {
		_, err := executor.Execute(t.Context(), execution.Request{LogicalName: "demo"})
		require.Error(t, err)
		assert.False(t, execution.IsCircuitOpen(err))
	}

	assert.Equal(t, gobreaker.StateClosed, executor.State())
}

func TestNewHTTPExecutor_InvalidURL(t *testing.T) {
	_, err := execution.NewHTTPExecutor(execution.HTTPConfig{BaseURL: "not a url"}, slog.Default())
	assert.Error(t, err)
}
