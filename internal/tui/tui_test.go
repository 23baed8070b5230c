package tui_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todolist"
	"github.com/Makepad-fr/tada/internal/tui"
)

type memRemote struct {
	todos      []model.Todo
	failUpdate bool
	n          int
}

func (r *memRemote) List(context.Context) ([]model.Todo, error) {
	return append([]model.Todo(nil), r.todos...), nil
}

func (r *memRemote) Create(_ context.Context, d model.Draft) (model.Todo, error) {
	r.n++
	ts := model.NewTimestamp(time.Now())
	t := model.Todo{ID: fmt.Sprint("new-", r.n), Title: d.Title, Description: d.Description, CreatedAt: ts, UpdatedAt: ts}
	r.todos = append([]model.Todo{t}, r.todos...)
	return t, nil
}

func (r *memRemote) Update(_ context.Context, id string, p model.Patch) (model.Todo, error) {
	if r.failUpdate {
		return model.Todo{}, errors.New("503 Service Unavailable")
	}
	for i, t := range r.todos {
		if t.ID == id {
			r.todos[i] = p.Apply(t)
			return r.todos[i], nil
		}
	}
	return model.Todo{}, errors.New("404 Not Found")
}

func (r *memRemote) Delete(context.Context, string) error { return nil }

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// harness wires a model to a controller and lets tests drive it.
type harness struct {
	t   *testing.T
	ctl *todolist.Controller
	m   tea.Model
}

func newHarness(t *testing.T, remote *memRemote) *harness {
	ctl := todolist.New(remote)
	h := &harness{t: t, ctl: ctl, m: tui.New(ctl)}
	require.NotNil(t, h.m.Init())
	h.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	h.send(ctl.Load()())
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.m, cmd = h.m.Update(msg)
	return cmd
}

func (h *harness) press(keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		cmd = h.send(keyMsg(k))
	}
	return cmd
}

func (h *harness) view() string { return h.m.View() }

func seeded() *memRemote {
	ts := model.NewTimestamp(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	return &memRemote{todos: []model.Todo{
		{ID: "a", Title: "Buy milk", CreatedAt: ts, UpdatedAt: ts},
		{ID: "b", Title: "Walk dog", Completed: true, CreatedAt: ts, UpdatedAt: ts},
	}}
}

func TestInitialView(t *testing.T) {
	h := newHarness(t, seeded())
	v := h.view()
	assert.Contains(t, v, "Buy milk")
	assert.Contains(t, v, "Walk dog")
	assert.Contains(t, v, "Created: ")
}

func TestEmptyState(t *testing.T) {
	h := newHarness(t, &memRemote{})
	assert.Contains(t, h.view(), "No todos yet")
}

func TestAddFlow(t *testing.T) {
	h := newHarness(t, seeded())
	h.press("a", "Read book")
	assert.Contains(t, h.view(), "Add new todo")
	assert.Equal(t, "Read book", h.ctl.Draft().Title)

	cmd := h.press("enter")
	require.NotNil(t, cmd)
	assert.True(t, h.ctl.Busy())
	assert.Contains(t, h.view(), "Adding...")
	assert.Nil(t, h.press("enter"), "enter is ignored while a create is in flight")

	h.send(cmd())
	assert.False(t, h.ctl.Busy())
	first, _ := h.ctl.At(0)
	assert.Equal(t, "Read book", first.Title)
	assert.NotContains(t, h.view(), "Add new todo")
	assert.Equal(t, model.Draft{}, h.ctl.Draft())
}

func TestAddBlankTitle(t *testing.T) {
	h := newHarness(t, seeded())
	h.press("a", "   ")
	assert.Nil(t, h.press("enter"))
	assert.Contains(t, h.view(), "Title cannot be empty")
	assert.Equal(t, 2, h.ctl.Len())
}

func TestDraftSurvivesCancel(t *testing.T) {
	h := newHarness(t, seeded())
	h.press("a", "Half typed", "tab", "notes", "esc")
	assert.NotContains(t, h.view(), "Add new todo")
	assert.Equal(t, model.Draft{Title: "Half typed", Description: "notes"}, h.ctl.Draft())

	h.press("a")
	assert.Contains(t, h.view(), "Half typed")
}

func TestToggleSelected(t *testing.T) {
	h := newHarness(t, seeded())
	cmd := h.press(" ")
	require.NotNil(t, cmd)
	h.send(cmd())

	a, _ := h.ctl.Find("a")
	b, _ := h.ctl.Find("b")
	assert.True(t, a.Completed)
	assert.True(t, b.Completed)
}

func TestDeleteSelected(t *testing.T) {
	h := newHarness(t, seeded())
	cmd := h.press("d")
	require.NotNil(t, cmd)
	h.send(cmd())
	assert.Equal(t, 1, h.ctl.Len())
	assert.NotContains(t, h.view(), "Buy milk")
}

func TestEditFlow(t *testing.T) {
	t.Run("save", func(t *testing.T) {
		h := newHarness(t, seeded())
		h.press("e", " today")
		buf, ok := h.ctl.Editing()
		require.True(t, ok)
		assert.Equal(t, "Buy milk today", buf.Title)

		cmd := h.press("enter")
		require.NotNil(t, cmd)
		h.send(cmd())
		got, _ := h.ctl.Find("a")
		assert.Equal(t, "Buy milk today", got.Title)
		assert.NotContains(t, h.view(), "Edit todo")
	})

	t.Run("failed save keeps the form open", func(t *testing.T) {
		remote := seeded()
		remote.failUpdate = true
		h := newHarness(t, remote)
		h.press("e", "!")
		cmd := h.press("enter")
		require.NotNil(t, cmd)
		h.send(cmd())

		assert.Contains(t, h.view(), "Edit todo")
		_, editing := h.ctl.Editing()
		assert.True(t, editing)
		got, _ := h.ctl.Find("a")
		assert.Equal(t, "Buy milk", got.Title)
	})

	t.Run("cancel", func(t *testing.T) {
		h := newHarness(t, seeded())
		h.press("e", "zzz", "esc")
		_, editing := h.ctl.Editing()
		assert.False(t, editing)
		got, _ := h.ctl.Find("a")
		assert.Equal(t, "Buy milk", got.Title)
	})
}

func TestDeletingEditedTodoClosesForm(t *testing.T) {
	h := newHarness(t, seeded())
	del := h.press("d")
	require.NotNil(t, del)
	h.press("e", "!")
	require.Contains(t, h.view(), "Edit todo")

	h.send(del())
	_, editing := h.ctl.Editing()
	assert.False(t, editing)
	assert.NotContains(t, h.view(), "Edit todo")
	assert.Equal(t, 1, h.ctl.Len())
}

func TestQuit(t *testing.T) {
	h := newHarness(t, seeded())
	cmd := h.press("q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
