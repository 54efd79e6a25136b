// Package storage persists embedded documents and answers nearest-neighbor
// queries over them. Two backends are provided: a brute-force local store
// persisted as JSON, and a Qdrant collection reached over gRPC. The Manager
// type binds a backend to an embedding provider and is the surface the rest
// of the system talks to.
package storage

import "context"

// Backend is an open handle onto one vector collection.
//
// Search returns items ranked by descending similarity; ties keep insertion
// order. k larger than the collection returns everything. Backends do not
// guarantee thread-safety for mutations; the design assumes a single writer.
type Backend interface {
	Upsert(ctx context.Context, items []Item) error
	Search(ctx context.Context, vector []float32, k int) ([]ScoredItem, error)
	Count(ctx context.Context) (int, error)

	// Clear empties the collection without destroying it.
	Clear(ctx context.Context) error

	// Destroy removes the collection entirely. The handle is unusable
	// afterwards.
	Destroy(ctx context.Context) error

	// Location describes where the collection lives (directory path or
	// collection name), for stats output.
	Location() string

	Close() error
}

// Opener creates or opens a Backend at a fixed location. It separates
// "where the collection lives" from "a live handle on it", so the Manager
// can express load-or-create flows.
type Opener interface {
	// Open returns a handle on an existing collection, or ErrNotFound.
	Open(ctx context.Context) (Backend, error)

	// Create makes a new collection for vectors of the given dimension.
	// Opening over an existing collection replaces it.
	Create(ctx context.Context, dimension int) (Backend, error)
}
