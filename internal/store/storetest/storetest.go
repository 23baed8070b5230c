// Package storetest holds the behaviour every store.Store must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// Opener returns a fresh, empty store for one subtest.
type Opener func(t *testing.T) store.Store

func todo(id string, created time.Time) model.Todo {
	ts := model.NewTimestamp(created)
	return model.Todo{ID: id, Title: "title " + id, CreatedAt: ts, UpdatedAt: ts}
}

// Run exercises open against the store contract.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty list", func(t *testing.T) {
		s := open(t)
		todos, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, todos)
		assert.Empty(t, todos)
	})

	t.Run("insert and list newest first", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Insert(ctx, todo("a", base)))
		require.NoError(t, s.Insert(ctx, todo("b", base.Add(500*time.Millisecond))))
		require.NoError(t, s.Insert(ctx, todo("c", base.Add(time.Second))))

		todos, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, todos, 3)
		assert.Equal(t, "c", todos[0].ID)
		assert.Equal(t, "b", todos[1].ID)
		assert.Equal(t, "a", todos[2].ID)
		assert.True(t, todos[2].CreatedAt.Equal(base))
	})

	t.Run("duplicate insert fails", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Insert(ctx, todo("a", base)))
		require.Error(t, s.Insert(ctx, todo("a", base)))
	})

	t.Run("get", func(t *testing.T) {
		s := open(t)
		in := todo("a", base)
		in.Description = "notes"
		in.Completed = true
		require.NoError(t, s.Insert(ctx, in))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, "notes", got.Description)
		assert.True(t, got.Completed)

		_, err = s.Get(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("replace keeps created_at", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Insert(ctx, todo("a", base)))

		upd := todo("a", base)
		upd.Title = "renamed"
		upd.Completed = true
		upd.UpdatedAt = model.NewTimestamp(base.Add(time.Hour))
		require.NoError(t, s.Replace(ctx, upd))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.True(t, got.Completed)
		assert.True(t, got.CreatedAt.Equal(base))
		assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

		require.ErrorIs(t, s.Replace(ctx, todo("missing", base)), store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Insert(ctx, todo("a", base)))
		require.NoError(t, s.Insert(ctx, todo("b", base.Add(time.Second))))

		require.NoError(t, s.Delete(ctx, "a"))
		todos, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, "b", todos[0].ID)

		require.ErrorIs(t, s.Delete(ctx, "a"), store.ErrNotFound)
	})
}
