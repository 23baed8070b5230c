package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
	"github.com/Makepad-fr/tada/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "todos.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todos.db")
	ts := model.NewTimestamp(time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC))

	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, model.Todo{ID: "a", Title: "Buy milk", CreatedAt: ts, UpdatedAt: ts}))
	require.NoError(t, s.Close())

	reopened, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.True(t, got.CreatedAt.Equal(ts.Time))
}
