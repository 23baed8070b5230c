package todolist

import (
	"errors"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
)

// LoadedMsg carries the result of Load.
type LoadedMsg struct {
	Todos []model.Todo
	Err   error
}

// CreatedMsg carries the result of Create.
type CreatedMsg struct {
	Todo model.Todo
	Err  error
}

// UpdatedMsg carries the result of Update, ToggleComplete and SaveEdit.
type UpdatedMsg struct {
	ID       string
	Todo     model.Todo
	FromEdit bool
	Err      error
}

// DeletedMsg carries the result of Delete.
type DeletedMsg struct {
	ID  string
	Err error
}

// ErrBadRecord is reported when a 2xx response does not carry the record
// the request was about.
var ErrBadRecord = errors.New("response is not the expected todo")

// Apply folds a request result into the controller state. It reports
// whether msg was one of the controller's result messages.
func (c *Controller) Apply(msg tea.Msg) bool {
	ok, _ := c.apply(msg)
	return ok
}

func (c *Controller) apply(msg tea.Msg) (bool, error) {
	switch m := msg.(type) {
	case LoadedMsg:
		if m.Err != nil {
			return true, c.failed("load", "", m.Err)
		}
		c.todos = slices.Clone(m.Todos)
		if c.todos == nil {
			c.todos = []model.Todo{}
		}
		c.log.Debug("loaded", "count", len(c.todos))

	case CreatedMsg:
		c.busy = false
		if m.Err == nil && m.Todo.ID == "" {
			m.Err = fmt.Errorf("%w: created record has no id", ErrBadRecord)
		}
		if m.Err != nil {
			return true, c.failed("create", "", m.Err)
		}
		// A load that finished after the create may already hold the record.
		if i := c.indexOf(m.Todo.ID); i >= 0 {
			c.todos = slices.Delete(c.todos, i, i+1)
		}
		c.todos = slices.Insert(c.todos, 0, m.Todo)
		c.draft = model.Draft{}
		c.log.Debug("created", "id", m.Todo.ID)

	case UpdatedMsg:
		if m.Err == nil && m.Todo.ID != m.ID {
			m.Err = fmt.Errorf("%w: got id %q", ErrBadRecord, m.Todo.ID)
		}
		if m.Err != nil {
			return true, c.failed("update", m.ID, m.Err)
		}
		if i := c.indexOf(m.ID); i >= 0 {
			c.todos[i] = m.Todo
		}
		if m.FromEdit && c.edit != nil && c.edit.ID == m.ID {
			c.edit = nil
		}
		c.log.Debug("updated", "id", m.ID)

	case DeletedMsg:
		if m.Err != nil {
			return true, c.failed("delete", m.ID, m.Err)
		}
		if i := c.indexOf(m.ID); i >= 0 {
			c.todos = slices.Delete(c.todos, i, i+1)
		}
		c.log.Debug("deleted", "id", m.ID)

	default:
		return false, nil
	}
	return true, nil
}

func (c *Controller) failed(op, id string, err error) error {
	if id == "" {
		c.log.Error("request failed", "op", op, "err", err)
	} else {
		c.log.Error("request failed", "op", op, "id", id, "err", err)
	}
	return err
}

// Do runs cmd on the calling goroutine, applies its result and returns the
// request error, if any. A nil cmd (an operation that sent nothing) returns
// nil. It is the synchronous counterpart of handing cmd to a tea.Program.
func (c *Controller) Do(cmd tea.Cmd) error {
	if cmd == nil {
		return nil
	}
	_, err := c.apply(cmd())
	return err
}
