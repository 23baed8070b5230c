// Package todolist keeps a local, ordered mirror of the remote todo
// collection and reconciles it with server responses.
//
// Every operation that talks to the server is split in two halves. The
// issuing method validates its input, updates the in-flight flags and
// returns a tea.Cmd that performs the request; the command's result message
// is later handed to Apply, which mutates the collection. Only the issuing
// methods and Apply touch controller state, so a Controller must be driven
// from a single goroutine (the bubbletea event loop, or Do in one-shot mode).
// Commands themselves run anywhere: they only use the Remote.
//
// Local state changes only after the server confirmed a mutation. A failed
// request is logged and leaves the controller as if it had never been sent.
package todolist

import (
	"context"
	"io"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
)

// Remote is the collection resource the controller mirrors.
type Remote interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, d model.Draft) (model.Todo, error)
	Update(ctx context.Context, id string, p model.Patch) (model.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Controller owns the todo collection, the draft and the edit buffer.
type Controller struct {
	remote Remote
	log    *log.Logger
	ctx    context.Context

	todos []model.Todo
	draft model.Draft
	edit  *model.EditBuffer
	busy  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostic logger failures are reported to.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithContext sets the parent context of every request.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// New returns an empty controller over remote. Call Load to populate it.
func New(remote Remote, opts ...Option) *Controller {
	c := &Controller{
		remote: remote,
		log:    log.New(io.Discard),
		ctx:    context.Background(),
		todos:  []model.Todo{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Todos returns a copy of the collection in display order.
func (c *Controller) Todos() []model.Todo { return slices.Clone(c.todos) }

// Len is the number of todos currently held.
func (c *Controller) Len() int { return len(c.todos) }

// At returns the todo at index i.
func (c *Controller) At(i int) (model.Todo, bool) {
	if i < 0 || i >= len(c.todos) {
		return model.Todo{}, false
	}
	return c.todos[i], true
}

// Find returns the todo with the given id.
func (c *Controller) Find(id string) (model.Todo, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.todos[i], true
	}
	return model.Todo{}, false
}

// Counts derives total/completed/pending from the current collection.
func (c *Controller) Counts() model.Counts { return model.Tally(c.todos) }

// Busy reports whether a create request is in flight.
func (c *Controller) Busy() bool { return c.busy }

// Draft returns the pending new-todo input.
func (c *Controller) Draft() model.Draft { return c.draft }

// SetDraft replaces the pending new-todo input.
func (c *Controller) SetDraft(d model.Draft) { c.draft = d }

// Editing returns the active edit buffer, if any.
func (c *Controller) Editing() (model.EditBuffer, bool) {
	if c.edit == nil {
		return model.EditBuffer{}, false
	}
	return *c.edit, true
}

// SetEditFields updates the active edit buffer. It is a no-op when nothing
// is being edited.
func (c *Controller) SetEditFields(title, description string) {
	if c.edit == nil {
		return
	}
	c.edit.Title = title
	c.edit.Description = description
}

// Load fetches the whole collection. On success the local list is replaced.
func (c *Controller) Load() tea.Cmd {
	remote, ctx := c.remote, c.ctx
	return func() tea.Msg {
		todos, err := remote.List(ctx)
		return LoadedMsg{Todos: todos, Err: err}
	}
}

// Create submits the current draft. It returns nil, sending nothing, when the
// draft title is blank or another create is still in flight.
func (c *Controller) Create() tea.Cmd {
	if c.busy || c.draft.Blank() {
		return nil
	}
	c.busy = true
	remote, ctx, draft := c.remote, c.ctx, c.draft
	return func() tea.Msg {
		t, err := remote.Create(ctx, draft)
		return CreatedMsg{Todo: t, Err: err}
	}
}

// Update sends a partial update for id.
func (c *Controller) Update(id string, p model.Patch) tea.Cmd {
	return c.update(id, p, false)
}

func (c *Controller) update(id string, p model.Patch, fromEdit bool) tea.Cmd {
	remote, ctx := c.remote, c.ctx
	return func() tea.Msg {
		t, err := remote.Update(ctx, id, p)
		return UpdatedMsg{ID: id, Todo: t, FromEdit: fromEdit, Err: err}
	}
}

// Delete removes id from the server.
func (c *Controller) Delete(id string) tea.Cmd {
	remote, ctx := c.remote, c.ctx
	return func() tea.Msg {
		return DeletedMsg{ID: id, Err: remote.Delete(ctx, id)}
	}
}

// ToggleComplete flips the completion flag of t.
func (c *Controller) ToggleComplete(t model.Todo) tea.Cmd {
	return c.Update(t.ID, model.CompletedPatch(!t.Completed))
}

// BeginEdit starts editing t, replacing any edit already in progress.
func (c *Controller) BeginEdit(t model.Todo) {
	c.edit = model.NewEditBuffer(t)
}

// SaveEdit sends the edit buffer's title and description. It returns nil
// when nothing is being edited or the edited title is blank.
func (c *Controller) SaveEdit() tea.Cmd {
	if c.edit == nil || c.edit.Blank() {
		return nil
	}
	return c.update(c.edit.ID, model.ContentPatch(c.edit.Title, c.edit.Description), true)
}

// CancelEdit drops the edit buffer.
func (c *Controller) CancelEdit() { c.edit = nil }

func (c *Controller) indexOf(id string) int {
	return slices.IndexFunc(c.todos, func(t model.Todo) bool { return t.ID == id })
}
