package storage

import "errors"

var (
	// ErrNotFound indicates no persisted collection exists at the
	// configured location.
	ErrNotFound = errors.New("vector store not found")

	// ErrNotInitialized indicates an operation was attempted before
	// Create/Load, or after Delete invalidated the handle.
	ErrNotInitialized = errors.New("vector store not initialized")

	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// the collection's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnreachable indicates the backing vector database did not answer
	// health checks.
	ErrUnreachable = errors.New("vector database unreachable")
)
