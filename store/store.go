package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by FindOne when no record matches.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write would violate a unique index.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrUnavailable wraps connectivity and timeout failures of the backing store.
	ErrUnavailable = errors.New("store: unavailable")
)

// Filter is an equality conjunction on top-level fields. A nil value matches records
// where the field is null or missing.
type Filter map[string]any

// Patch lists field assignments applied by Update.
type Patch map[string]any

// FindOptions controls pagination and ordering of FindMany.
type FindOptions struct {
	Skip       int64
	Limit      int64
	SortBy     string
	Descending bool
}

// Store is the record persistence contract. Every method is atomic per record; no
// multi-record transactions are offered.
type Store interface {
	// Create inserts doc into collection.
	Create(ctx context.Context, collection string, doc any) error
	// FindOne decodes the first match into out or returns ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	// FindMany decodes all matches into out, which must be a pointer to a slice.
	FindMany(ctx context.Context, collection string, filter Filter, opts FindOptions, out any) error
	// Update applies patch to every match and returns how many records matched.
	Update(ctx context.Context, collection string, filter Filter, patch Patch) (int64, error)
	// Count returns the number of matches.
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
}

// Pinger is implemented by adapters that can report backend liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
