// Package embedding converts text into fixed-length vectors.
//
// A Provider pins its vector dimension on the first successful call and
// rejects any later result that disagrees, so a store created with one
// provider instance can never mix dimensionalities.
package embedding

import (
	"context"
	"errors"
)

var (
	// ErrModelUnavailable indicates the named embedding model could not be
	// reached or resolved at construction time.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrInvalidInput indicates a nil or empty input batch.
	ErrInvalidInput = errors.New("invalid embedding input")

	// ErrDimensionMismatch indicates the backend returned a vector whose
	// length differs from the dimension pinned by this provider instance.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider generates embeddings for text.
//
// EmbedDocuments returns one vector per input text, in input order.
// Empty strings are valid input and produce a vector, not an error.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the pinned vector length, or 0 before the first call.
	Dimension() int

	ModelName() string
}
