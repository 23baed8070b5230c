// Package store defines persistence for the reference todo backend.
package store

import (
	"context"
	"errors"

	"github.com/Makepad-fr/tada/internal/model"
)

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// Store persists todos. List returns newest first.
type Store interface {
	List(ctx context.Context) ([]model.Todo, error)
	Get(ctx context.Context, id string) (model.Todo, error)
	Insert(ctx context.Context, t model.Todo) error
	Replace(ctx context.Context, t model.Todo) error
	Delete(ctx context.Context, id string) error
	Close() error
}
