package editor

import (
	"time"

	"github.com/dukex/operion-studio/pkg/models"
)

const (
	DefaultHistoryLimit   = 50
	DefaultCoalesceWindow = time.Second
)

// Snapshot is one history entry. Documents are never modified after being committed, so a
// snapshot can share steps with its neighbours.
type Snapshot struct {
	Document  models.Workflow
	Selection models.Selection

	revision uint64
}

// History is a bounded, linear undo/redo stack of snapshots. The entry under the cursor is the
// current state; committing while the cursor is behind the top discards the redo entries.
//
// Field edits committed through CommitEdit are coalesced: an edit with the same key as the
// previous one, arriving within the coalescing window, replaces the top entry instead of
// pushing a new one. Any other commit, Seal, Undo or Redo ends the run.
type History struct {
	entries []Snapshot
	cursor  int
	limit   int
	window  time.Duration

	editKey string
	editAt  time.Time
}

// NewHistory returns a history holding only initial. A limit below 2 or a negative window falls
// back to the defaults.
func NewHistory(initial Snapshot, limit int, window time.Duration) *History {
	if limit < 2 {
		limit = DefaultHistoryLimit
	}

	if window < 0 {
		window = DefaultCoalesceWindow
	}

	return &History{
		entries: []Snapshot{initial},
		limit:   limit,
		window:  window,
	}
}

// Commit pushes a snapshot after a structural mutation.
func (h *History) Commit(snapshot Snapshot) {
	h.Seal()
	h.push(snapshot)
}

// CommitEdit pushes or coalesces a snapshot after a field edit identified by key.
func (h *History) CommitEdit(key string, snapshot Snapshot, at time.Time) {
	if h.coalesces(key, at) {
		h.entries[h.cursor] = snapshot
		h.editAt = at

		return
	}

	h.push(snapshot)
	h.editKey = key
	h.editAt = at
}

func (h *History) coalesces(key string, at time.Time) bool {
	return h.editKey != "" &&
		h.editKey == key &&
		h.cursor == len(h.entries)-1 &&
		h.cursor > 0 &&
		at.Sub(h.editAt) <= h.window
}

func (h *History) push(snapshot Snapshot) {
	h.entries = append(h.entries[:h.cursor+1], snapshot)

	if overflow := len(h.entries) - h.limit; overflow > 0 {
		h.entries = append([]Snapshot(nil), h.entries[overflow:]...)
	}

	h.cursor = len(h.entries) - 1
}

// Seal ends the current coalescing run, e.g. when an inspector field loses focus.
func (h *History) Seal() {
	h.editKey = ""
	h.editAt = time.Time{}
}

// Undo moves the cursor back and returns the snapshot it lands on.
func (h *History) Undo() (Snapshot, error) {
	if !h.CanUndo() {
		return Snapshot{}, ErrNothingToUndo
	}

	h.Seal()
	h.cursor--

	return h.entries[h.cursor], nil
}

// Redo moves the cursor forward and returns the snapshot it lands on.
func (h *History) Redo() (Snapshot, error) {
	if !h.CanRedo() {
		return Snapshot{}, ErrNothingToRedo
	}

	h.Seal()
	h.cursor++

	return h.entries[h.cursor], nil
}

func (h *History) Current() Snapshot {
	return h.entries[h.cursor]
}

func (h *History) CanUndo() bool {
	return h.cursor > 0
}

func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

// Len returns the number of retained snapshots, including the current one.
func (h *History) Len() int {
	return len(h.entries)
}
