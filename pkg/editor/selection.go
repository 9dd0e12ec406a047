package editor

import (
	"slices"

	"github.com/dukex/operion-studio/pkg/models"
)

// DefaultInsertMode is the insert mode of a new controller.
const DefaultInsertMode = models.InsertAfterSelected

// Listener is notified whenever the focus or the insert mode changes.
type Listener func(selection models.Selection, mode models.InsertMode)

type subscription struct {
	id       int
	listener Listener
}

// Controller holds the editor focus and the catalog insert mode. It does not know the document;
// the session keeps the focus pointing at an existing step.
type Controller struct {
	selection   models.Selection
	mode        models.InsertMode
	subscribers []subscription
	nextID      int
}

func NewController() *Controller {
	return &Controller{mode: DefaultInsertMode}
}

func (c *Controller) Selection() models.Selection {
	return c.selection
}

func (c *Controller) Mode() models.InsertMode {
	return c.mode
}

// Select replaces the focus.
func (c *Controller) Select(selection models.Selection) {
	if c.selection == selection {
		return
	}

	c.selection = selection
	c.notify()
}

// SetMode replaces the insert mode.
func (c *Controller) SetMode(mode models.InsertMode) error {
	if !slices.Contains(models.InsertModes, mode) {
		return ErrUnknownInsertMode
	}

	if c.mode == mode {
		return nil
	}

	c.mode = mode
	c.notify()

	return nil
}

// Subscribe registers a listener and returns a function removing it.
func (c *Controller) Subscribe(listener Listener) func() {
	c.nextID++
	id := c.nextID

	c.subscribers = append(c.subscribers, subscription{id: id, listener: listener})

	return func() {
		c.subscribers = slices.DeleteFunc(c.subscribers, func(s subscription) bool {
			return s.id == id
		})
	}
}

func (c *Controller) notify() {
	for _, s := range slices.Clone(c.subscribers) {
		s.listener(c.selection, c.mode)
	}
}
