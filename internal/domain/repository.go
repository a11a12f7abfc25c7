package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by stores when no record has the requested Id.
	ErrNotFound = errors.New("notification not found")
	// ErrDuplicate is returned by Insert when a record with the same Id already exists.
	ErrDuplicate = errors.New("notification already exists")
)

// Store defines the port for notification persistence.
// Implementations live in infrastructure/{memory,sqlite,postgres}.
type Store interface {
	// Insert stores a new record. Returns ErrDuplicate if the Id is taken.
	Insert(ctx context.Context, r *Record) error

	// Update overwrites the record with the same Id. Returns ErrNotFound if absent.
	Update(ctx context.Context, r *Record) error

	// Delete removes the record with the given Id. Deleting an absent record is not an error.
	Delete(ctx context.Context, id string) error

	// FindByID fetches a record by its content-hash Id. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*Record, error)

	// ListOrdered returns every record ordered by TimestampCreated, oldest first.
	ListOrdered(ctx context.Context) ([]*Record, error)
}
