// Package store provides the keyed record store shared by every command.
//
// Records are opaque JSON documents grouped in collections ("players",
// "creatures-catalog", ...). Each record carries a version; Save is a
// compare-and-swap on that version so two read-modify-write cycles against
// the same record cannot silently overwrite each other.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record version conflict")
)

// Record is one stored document.
// Version 0 means "not stored yet"; the first successful Save yields version 1.
type Record struct {
	Key     string
	Data    []byte
	Version int64
}

// RecordStore is the durable key -> document store.
type RecordStore interface {
	// Load returns the record or ErrNotFound.
	Load(ctx context.Context, collection, key string) (*Record, error)

	// LoadAll returns every record in a collection in key order.
	LoadAll(ctx context.Context, collection string) ([]Record, error)

	// Save writes rec if the stored version equals rec.Version and returns
	// the new version. A mismatch returns ErrVersionConflict and writes nothing.
	Save(ctx context.Context, collection string, rec Record) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
