// Package jsonstore keeps todos in a single JSON file, rewritten on every
// mutation.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// Store is a file-backed store.Store. The whole file is held in memory.
type Store struct {
	path string

	mu    sync.RWMutex
	todos []model.Todo // newest first
}

var _ store.Store = (*Store)(nil)

// Open loads path, treating a missing file as an empty collection.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	todos, err := load(path)
	if err != nil {
		return nil, err
	}
	s.todos = todos
	return s, nil
}

func load(p string) ([]model.Todo, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var todos []model.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// save writes todos through a temp file so a crash never leaves half a file.
func (s *Store) save(todos []model.Todo) error {
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// commit persists next and only then makes it the visible state.
func (s *Store) commit(next []model.Todo) error {
	if err := s.save(next); err != nil {
		return err
	}
	s.todos = next
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.todos, func(t model.Todo) bool { return t.ID == id })
}

func (s *Store) List(_ context.Context) ([]model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.todos), nil
}

func (s *Store) Get(_ context.Context, id string) (model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.todos[i], nil
	}
	return model.Todo{}, store.ErrNotFound
}

func (s *Store) Insert(_ context.Context, t model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(t.ID) >= 0 {
		return fmt.Errorf("insert %s: duplicate id", t.ID)
	}
	return s.commit(slices.Insert(slices.Clone(s.todos), 0, t))
}

func (s *Store) Replace(_ context.Context, t model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(t.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	next := slices.Clone(s.todos)
	next[i] = t
	return s.commit(next)
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return store.ErrNotFound
	}
	return s.commit(slices.Delete(slices.Clone(s.todos), i, i+1))
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }
