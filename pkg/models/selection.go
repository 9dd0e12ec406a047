package models

import "fmt"

// TriggerSelectionValue is the text form of a selection focused on the trigger.
const TriggerSelectionValue = "trigger"

// Selection is the focused node of the editor: the trigger, or one step by id.
// The zero value selects the trigger.
type Selection struct {
	StepID string
}

// SelectTrigger returns a selection focused on the trigger.
func SelectTrigger() Selection {
	return Selection{}
}

// SelectStep returns a selection focused on the step with the given id.
func SelectStep(id string) Selection {
	return Selection{StepID: id}
}

// IsTrigger reports whether the trigger is focused.
func (s Selection) IsTrigger() bool {
	return s.StepID == ""
}

func (s Selection) String() string {
	if s.IsTrigger() {
		return TriggerSelectionValue
	}

	return s.StepID
}

func (s Selection) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Selection) UnmarshalText(text []byte) error {
	*s = ParseSelection(string(text))

	return nil
}

// ParseSelection is the inverse of Selection.String.
func ParseSelection(value string) Selection {
	if value == "" || value == TriggerSelectionValue {
		return SelectTrigger()
	}

	return SelectStep(value)
}

// InsertMode decides where a new or moved step lands relative to the selection.
type InsertMode string

const (
	InsertBeforeSelected  InsertMode = "before_selected"
	InsertAfterSelected   InsertMode = "after_selected"
	InsertIntoTrueBranch  InsertMode = "into_true_branch"
	InsertIntoFalseBranch InsertMode = "into_false_branch"
	InsertRootStart       InsertMode = "root_start"
	InsertRootEnd         InsertMode = "root_end"
)

// InsertModes lists every insert mode.
var InsertModes = []InsertMode{
	InsertBeforeSelected,
	InsertAfterSelected,
	InsertIntoTrueBranch,
	InsertIntoFalseBranch,
	InsertRootStart,
	InsertRootEnd,
}

// ParseInsertMode validates a textual insert mode.
func ParseInsertMode(value string) (InsertMode, error) {
	for _, mode := range InsertModes {
		if string(mode) == value {
			return mode, nil
		}
	}

	return "", fmt.Errorf("unknown insert mode %q", value)
}

// Branch returns the branch targeted by an into_* mode.
func (m InsertMode) Branch() (string, bool) {
	switch m {
	case InsertIntoTrueBranch:
		return BranchTrue, true
	case InsertIntoFalseBranch:
		return BranchFalse, true
	default:
		return "", false
	}
}

// Anchored reports whether the mode is resolved relative to the selection.
func (m InsertMode) Anchored() bool {
	return m != InsertRootStart && m != InsertRootEnd
}
