package todolist_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todolist"
)

var errServer = errors.New("500 Internal Server Error")

type call struct {
	Op    string
	ID    string
	Draft model.Draft
	Patch model.Patch
}

// fakeRemote serves from an in-memory slice and records every call.
type fakeRemote struct {
	mu    sync.Mutex
	todos []model.Todo
	calls []call
	fail  map[string]error
	next  int
	now   time.Time
}

func newFakeRemote(todos ...model.Todo) *fakeRemote {
	return &fakeRemote{
		todos: todos,
		fail:  map[string]error{},
		now:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRemote) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.Op]
}

func (f *fakeRemote) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRemote) List(ctx context.Context) ([]model.Todo, error) {
	if err := f.record(call{Op: "list"}); err != nil {
		return nil, err
	}
	return append([]model.Todo(nil), f.todos...), nil
}

func (f *fakeRemote) Create(ctx context.Context, d model.Draft) (model.Todo, error) {
	if err := f.record(call{Op: "create", Draft: d}); err != nil {
		return model.Todo{}, err
	}
	f.next++
	f.now = f.now.Add(time.Minute)
	t := model.Todo{
		ID:          "srv-" + string(rune('0'+f.next)),
		Title:       d.Title,
		Description: d.Description,
		CreatedAt:   model.NewTimestamp(f.now),
		UpdatedAt:   model.NewTimestamp(f.now),
	}
	f.todos = append([]model.Todo{t}, f.todos...)
	return t, nil
}

func (f *fakeRemote) Update(ctx context.Context, id string, p model.Patch) (model.Todo, error) {
	if err := f.record(call{Op: "update", ID: id, Patch: p}); err != nil {
		return model.Todo{}, err
	}
	for i, t := range f.todos {
		if t.ID == id {
			f.now = f.now.Add(time.Minute)
			t = p.Apply(t)
			t.UpdatedAt = model.NewTimestamp(f.now)
			f.todos[i] = t
			return t, nil
		}
	}
	return model.Todo{}, errors.New("404 Not Found")
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	return f.record(call{Op: "delete", ID: id})
}

func seed() []model.Todo {
	at := model.NewTimestamp(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	return []model.Todo{
		{ID: "a", Title: "A", Completed: false, CreatedAt: at, UpdatedAt: at},
		{ID: "b", Title: "B", Completed: true, CreatedAt: at, UpdatedAt: at},
		{ID: "c", Title: "C", Description: "third", CreatedAt: at, UpdatedAt: at},
	}
}

func loaded(t *testing.T, remote *fakeRemote, opts ...todolist.Option) *todolist.Controller {
	t.Helper()
	c := todolist.New(remote, opts...)
	require.NoError(t, c.Do(c.Load()))
	return c
}

func ids(todos []model.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Run("replaces collection in server order", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		assert.Equal(t, []string{"a", "b", "c"}, ids(c.Todos()))
	})

	t.Run("failure keeps previous list and logs", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		var buf bytes.Buffer
		c := loaded(t, remote, todolist.WithLogger(log.New(&buf)))
		before := c.Todos()

		remote.fail["list"] = errServer
		err := c.Do(c.Load())
		require.ErrorIs(t, err, errServer)
		assert.Equal(t, before, c.Todos())
		assert.Contains(t, buf.String(), "request failed")
		assert.Contains(t, buf.String(), "op=load")
	})
}

func TestCreate(t *testing.T) {
	t.Run("blank title sends nothing", func(t *testing.T) {
		for _, title := range []string{"", "   ", "\t\n"} {
			remote := newFakeRemote(seed()...)
			c := loaded(t, remote)
			c.SetDraft(model.Draft{Title: title, Description: "kept"})

			assert.Nil(t, c.Create())
			assert.False(t, c.Busy())
			assert.Len(t, remote.Calls(), 1) // the initial list only
			assert.Equal(t, 3, c.Len())
			assert.Equal(t, "kept", c.Draft().Description)
		}
	})

	t.Run("success prepends server record and clears draft", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		c.SetDraft(model.Draft{Title: "Buy milk", Description: ""})

		cmd := c.Create()
		require.NotNil(t, cmd)
		assert.True(t, c.Busy())

		require.NoError(t, c.Do(cmd))
		assert.False(t, c.Busy())
		require.Equal(t, 4, c.Len())
		first, _ := c.At(0)
		assert.Equal(t, "srv-1", first.ID)
		assert.Equal(t, "Buy milk", first.Title)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Equal(t, []string{"srv-1", "a", "b", "c"}, ids(c.Todos()))
		assert.Equal(t, model.Draft{}, c.Draft())

		calls := remote.Calls()
		assert.Equal(t, model.Draft{Title: "Buy milk"}, calls[len(calls)-1].Draft)
	})

	t.Run("failure keeps draft and list, clears busy", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		remote.fail["create"] = errServer
		c.SetDraft(model.Draft{Title: "Buy milk", Description: "2%"})

		err := c.Do(c.Create())
		require.ErrorIs(t, err, errServer)
		assert.False(t, c.Busy())
		assert.Equal(t, model.Draft{Title: "Buy milk", Description: "2%"}, c.Draft())
		assert.Equal(t, []string{"a", "b", "c"}, ids(c.Todos()))
	})

	t.Run("busy gates a second create only", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		c.SetDraft(model.Draft{Title: "one"})
		inflight := c.Create()
		require.NotNil(t, inflight)

		c.SetDraft(model.Draft{Title: "two"})
		assert.Nil(t, c.Create())

		// Other operations still run while the create is pending.
		b, _ := c.Find("b")
		require.NoError(t, c.Do(c.ToggleComplete(b)))

		require.NoError(t, c.Do(inflight))
		assert.False(t, c.Busy())
		first, _ := c.At(0)
		assert.Equal(t, "one", first.Title)
	})

	t.Run("record already delivered by a load is not duplicated", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		c.SetDraft(model.Draft{Title: "new"})
		create := c.Create()
		msg := create()

		require.NoError(t, c.Do(c.Load()))
		require.True(t, c.Apply(msg))
		assert.Equal(t, []string{"srv-1", "a", "b", "c"}, ids(c.Todos()))
	})
}

func TestToggleComplete(t *testing.T) {
	c := loaded(t, newFakeRemote(seed()...))
	before := c.Todos()

	a, _ := c.Find("a")
	require.NoError(t, c.Do(c.ToggleComplete(a)))

	after := c.Todos()
	require.Len(t, after, len(before))
	assert.True(t, after[0].Completed)
	assert.True(t, after[0].UpdatedAt.After(before[0].UpdatedAt.Time))
	assert.Equal(t, before[1:], after[1:])
}

func TestUpdate(t *testing.T) {
	t.Run("replaces only the matching element", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		before := c.Todos()
		require.NoError(t, c.Do(c.Update("b", model.ContentPatch("B2", "desc"))))
		after := c.Todos()
		assert.Equal(t, "B2", after[1].Title)
		assert.Equal(t, "desc", after[1].Description)
		assert.True(t, after[1].Completed)
		assert.Equal(t, before[0], after[0])
		assert.Equal(t, before[2], after[2])
	})

	t.Run("failure leaves collection identical", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		before := c.Todos()
		remote.fail["update"] = errServer

		err := c.Do(c.Update("a", model.CompletedPatch(true)))
		require.ErrorIs(t, err, errServer)
		assert.Equal(t, before, c.Todos())
	})

	t.Run("response for a removed id is dropped", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		a, _ := c.Find("a")
		toggle := c.ToggleComplete(a)
		require.NoError(t, c.Do(c.Delete("a")))
		require.NoError(t, c.Do(toggle))
		assert.Equal(t, []string{"b", "c"}, ids(c.Todos()))
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes exactly one element", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		require.NoError(t, c.Do(c.Delete("b")))
		assert.Equal(t, []string{"a", "c"}, ids(c.Todos()))
	})

	t.Run("failure keeps element", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		remote.fail["delete"] = errServer
		require.Error(t, c.Do(c.Delete("b")))
		assert.Equal(t, []string{"a", "b", "c"}, ids(c.Todos()))
	})
}

func TestEdit(t *testing.T) {
	t.Run("begin copies fields and preempts", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		a, _ := c.Find("a")
		cc, _ := c.Find("c")
		c.BeginEdit(a)
		c.BeginEdit(cc)

		buf, ok := c.Editing()
		require.True(t, ok)
		assert.Equal(t, model.EditBuffer{ID: "c", Title: "C", Description: "third"}, buf)
	})

	t.Run("blank title sends nothing", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		a, _ := c.Find("a")
		c.BeginEdit(a)
		c.SetEditFields("  ", "x")

		assert.Nil(t, c.SaveEdit())
		assert.Len(t, remote.Calls(), 1)
		got, _ := c.Find("a")
		assert.Equal(t, "A", got.Title)
		_, editing := c.Editing()
		assert.True(t, editing)
	})

	t.Run("save without buffer sends nothing", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		assert.Nil(t, c.SaveEdit())
	})

	t.Run("successful save applies and clears buffer", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		a, _ := c.Find("a")
		c.BeginEdit(a)
		c.SetEditFields("A renamed", "with notes")

		require.NoError(t, c.Do(c.SaveEdit()))
		got, _ := c.Find("a")
		assert.Equal(t, "A renamed", got.Title)
		assert.Equal(t, "with notes", got.Description)
		_, editing := c.Editing()
		assert.False(t, editing)

		calls := remote.Calls()
		assert.Equal(t, model.ContentPatch("A renamed", "with notes"), calls[len(calls)-1].Patch)
	})

	t.Run("failed save keeps buffer", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		remote.fail["update"] = errServer
		a, _ := c.Find("a")
		c.BeginEdit(a)
		c.SetEditFields("A renamed", "")

		require.Error(t, c.Do(c.SaveEdit()))
		buf, editing := c.Editing()
		require.True(t, editing)
		assert.Equal(t, "A renamed", buf.Title)
		got, _ := c.Find("a")
		assert.Equal(t, "A", got.Title)
	})

	t.Run("save result does not clear an edit of another item", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		a, _ := c.Find("a")
		b, _ := c.Find("b")
		c.BeginEdit(a)
		c.SetEditFields("A2", "")
		save := c.SaveEdit()
		c.BeginEdit(b)

		require.NoError(t, c.Do(save))
		buf, editing := c.Editing()
		require.True(t, editing)
		assert.Equal(t, "b", buf.ID)
	})

	t.Run("toggle does not clear the edit buffer", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		a, _ := c.Find("a")
		c.BeginEdit(a)
		require.NoError(t, c.Do(c.ToggleComplete(a)))
		_, editing := c.Editing()
		assert.True(t, editing)
	})

	t.Run("cancel discards without a request", func(t *testing.T) {
		remote := newFakeRemote(seed()...)
		c := loaded(t, remote)
		a, _ := c.Find("a")
		c.BeginEdit(a)
		c.CancelEdit()
		_, editing := c.Editing()
		assert.False(t, editing)
		assert.Len(t, remote.Calls(), 1)
	})
}

func TestCounts(t *testing.T) {
	at := model.NewTimestamp(time.Now())
	c := loaded(t, newFakeRemote(
		model.Todo{ID: "A", Title: "A", Completed: false, CreatedAt: at, UpdatedAt: at},
		model.Todo{ID: "B", Title: "B", Completed: true, CreatedAt: at, UpdatedAt: at},
	))
	assert.Equal(t, model.Counts{Total: 2, Completed: 1, Pending: 1}, c.Counts())

	a, _ := c.Find("A")
	require.NoError(t, c.Do(c.ToggleComplete(a)))
	assert.Equal(t, model.Counts{Total: 2, Completed: 2, Pending: 0}, c.Counts())
}

func TestRejectsRecordsWithoutMatchingID(t *testing.T) {
	reply := func(msg tea.Msg) tea.Cmd { return func() tea.Msg { return msg } }

	t.Run("update", func(t *testing.T) {
		var buf bytes.Buffer
		c := loaded(t, newFakeRemote(seed()...), todolist.WithLogger(log.New(&buf)))
		before := c.Todos()
		a, _ := c.Find("a")
		c.BeginEdit(a)

		err := c.Do(reply(todolist.UpdatedMsg{ID: "a", FromEdit: true}))
		require.ErrorIs(t, err, todolist.ErrBadRecord)
		assert.Equal(t, before, c.Todos())
		_, editing := c.Editing()
		assert.True(t, editing)
		assert.Contains(t, buf.String(), "request failed")

		other := before[1]
		err = c.Do(reply(todolist.UpdatedMsg{ID: "a", Todo: other}))
		require.ErrorIs(t, err, todolist.ErrBadRecord)
		assert.Equal(t, before, c.Todos())
	})

	t.Run("create", func(t *testing.T) {
		c := loaded(t, newFakeRemote(seed()...))
		c.SetDraft(model.Draft{Title: "Buy milk"})
		require.NotNil(t, c.Create())
		require.True(t, c.Busy())

		err := c.Do(reply(todolist.CreatedMsg{Todo: model.Todo{Title: "Buy milk"}}))
		require.ErrorIs(t, err, todolist.ErrBadRecord)
		assert.False(t, c.Busy())
		assert.Equal(t, []string{"a", "b", "c"}, ids(c.Todos()))
		assert.Equal(t, "Buy milk", c.Draft().Title)
	})
}

func TestApplyIgnoresForeignMessages(t *testing.T) {
	c := todolist.New(newFakeRemote())
	assert.False(t, c.Apply("tick"))
	assert.NoError(t, c.Do(nil))
}
