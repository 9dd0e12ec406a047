package models

import "time"

// RunOutcome is the terminal state of a test run.
type RunOutcome string

const (
	RunOutcomeSuccess RunOutcome = "success"
	RunOutcomeError   RunOutcome = "error"
)

// StepStatus is the state a step reached during a test run.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusError   StepStatus = "error"
	StepStatusSkipped StepStatus = "skipped"
)

// StepTrace records what a single step did during a test run.
type StepTrace struct {
	StepID     string         `json:"step_id"`
	Status     StepStatus     `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// RunResult is returned by the execution interface for a test run.
type RunResult struct {
	RunID      string      `json:"run_id"`
	Outcome    RunOutcome  `json:"outcome"`
	Error      string      `json:"error,omitempty"`
	Trace      []StepTrace `json:"trace"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Succeeded reports whether the run finished without error.
func (r *RunResult) Succeeded() bool {
	return r.Outcome == RunOutcomeSuccess
}
