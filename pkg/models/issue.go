package models

import (
	"strconv"
	"strings"
)

// Severity of a validation issue. Errors block saving, warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Path segment branch names. Root addresses the top-level sequence; Trigger and Workflow are the
// sentinels used for issues that do not belong to a step.
const (
	BranchRoot     = "root"
	BranchTrigger  = "trigger"
	BranchWorkflow = "workflow"
)

// PathSegment is one hop from the root to a step: the sequence it lives in and its index there.
type PathSegment struct {
	Branch string `json:"branch"`
	Index  int    `json:"index"`
}

// Path addresses a node in the workflow document.
type Path []PathSegment

// TriggerPath is the sentinel path for trigger-level issues.
func TriggerPath() Path {
	return Path{{Branch: BranchTrigger, Index: -1}}
}

// WorkflowPath is the sentinel path for document-level issues.
func WorkflowPath() Path {
	return Path{{Branch: BranchWorkflow, Index: -1}}
}

// Append returns a new path extended by one segment; p itself is never modified.
func (p Path) Append(branch string, index int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)

	return append(out, PathSegment{Branch: branch, Index: index})
}

// String renders the path as e.g. "root[1].true[0]", "trigger" or "workflow".
func (p Path) String() string {
	parts := make([]string, 0, len(p))

	for _, segment := range p {
		if segment.Index < 0 {
			parts = append(parts, segment.Branch)

			continue
		}

		parts = append(parts, segment.Branch+"["+strconv.Itoa(segment.Index)+"]")
	}

	return strings.Join(parts, ".")
}

// ValidationIssue is a path-addressed finding produced by the validation engine.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Path     Path     `json:"path"`
	Message  string   `json:"message"`
	StepID   string   `json:"step_id,omitempty"`
}

// CountErrors returns the number of error-severity issues.
func CountErrors(issues []ValidationIssue) int {
	count := 0

	for _, issue := range issues {
		if issue.Severity == SeverityError {
			count++
		}
	}

	return count
}
