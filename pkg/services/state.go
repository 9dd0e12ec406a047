package services

import (
	"github.com/dukex/operion-studio/pkg/editor"
	"github.com/dukex/operion-studio/pkg/models"
)

// SessionState is a consistent snapshot of one session, taken under its lock.
type SessionState struct {
	ID         string                   `json:"id"`
	Workflow   models.Workflow          `json:"workflow"`
	Selection  models.Selection         `json:"selection"`
	Mode       models.InsertMode        `json:"mode"`
	Issues     []models.ValidationIssue `json:"issues"`
	ErrorCount int                      `json:"error_count"`
	CanSave    bool                     `json:"can_save"`
	CanUndo    bool                     `json:"can_undo"`
	CanRedo    bool                     `json:"can_redo"`
	Dirty      bool                     `json:"dirty"`
	Save       editor.RequestStatus     `json:"save"`
	Execute    editor.RequestStatus     `json:"execute"`
	LastRun    *models.RunResult        `json:"last_run,omitempty"`
}

func stateOf(id string, session *editor.Session) *SessionState {
	issues := session.Issues()
	if issues == nil {
		issues = []models.ValidationIssue{}
	}

	return &SessionState{
		ID:         id,
		Workflow:   session.Document(),
		Selection:  session.Selection(),
		Mode:       session.Mode(),
		Issues:     issues,
		ErrorCount: session.ErrorCount(),
		CanSave:    session.CanSave(),
		CanUndo:    session.CanUndo(),
		CanRedo:    session.CanRedo(),
		Dirty:      session.Dirty(),
		Save:       session.SaveStatus(),
		Execute:    session.ExecuteStatus(),
		LastRun:    session.LastRun(),
	}
}
