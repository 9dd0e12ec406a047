// Package execution sends test runs of a workflow to the external execution endpoint.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukex/operion-studio/pkg/models"
)

// Request is what the execution endpoint receives. Workflow is set when testing an unsaved draft;
// otherwise the endpoint runs the persisted version of LogicalName.
type Request struct {
	LogicalName string           `json:"logical_name"`
	Payload     map[string]any   `json:"payload"`
	Workflow    *models.Workflow `json:"workflow,omitempty"`
}

// Executor runs a workflow once and returns its trace. Implementations have no effect on
// persisted workflows.
type Executor interface {
	Execute(ctx context.Context, request Request) (*models.RunResult, error)
}

// Tester validates test payloads and forwards them to an Executor.
type Tester struct {
	executor Executor
	logger   *slog.Logger
}

func NewTester(executor Executor, logger *slog.Logger) *Tester {
	return &Tester{
		executor: executor,
		logger:   logger.With("module", "execution_tester"),
	}
}

// Execute parses rawPayload and runs the workflow. A *PayloadParseError is returned before any
// request is made when the payload is not a JSON object. A blank payload is sent as {}.
func (t *Tester) Execute(ctx context.Context, logicalName, rawPayload string, draft *models.Workflow) (*models.RunResult, error) {
	payload, err := ParsePayload(rawPayload)
	if err != nil {
		t.logger.Debug("Rejected test payload", "workflow", logicalName, "error", err)

		return nil, err
	}

	request := Request{LogicalName: logicalName, Payload: payload}

	if draft != nil {
		clone := draft.Clone()
		request.Workflow = &clone
	}

	t.logger.Info("Executing test run", "workflow", logicalName, "draft", draft != nil)

	result, err := t.executor.Execute(ctx, request)
	if err != nil {
		t.logger.Warn("Test run request failed", "workflow", logicalName, "error", err)

		return nil, err
	}

	t.logger.Info("Test run finished", "workflow", logicalName, "run_id", result.RunID, "outcome", result.Outcome)

	return result, nil
}

// ParsePayload decodes a test payload. It must be a JSON object.
func ParsePayload(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		parseErr := &PayloadParseError{Err: err}

		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			parseErr.Offset = syntaxErr.Offset
		}

		return nil, parseErr
	}

	payload, ok := decoded.(map[string]any)
	if !ok {
		return nil, &PayloadParseError{Err: ErrInvalidPayload}
	}

	return payload, nil
}
