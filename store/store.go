// Package store holds the keyed record stores behind the prediction and note
// resources. Every backend assigns integer ids and exposes the same CRUD set.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record carries the requested id.
var ErrNotFound = errors.New("record not found")

// Record is satisfied by a pointer to a storable type that exposes its id.
type Record[T any] interface {
	*T
	Key() int
	SetKey(id int)
}

// Store is the capability set shared by all backends.
type Store[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int) (T, error)
	// Create assigns the id of rec and persists it.
	Create(ctx context.Context, rec T) (T, error)
	// Update applies mutate to the stored record and persists the result.
	// The id is restored after mutate runs.
	Update(ctx context.Context, id int, mutate func(*T) error) (T, error)
	Delete(ctx context.Context, id int) error
	Close() error
}
