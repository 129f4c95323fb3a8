// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates a unit-normalized embedding vector for a single text input.
	// The returned vector always has exactly Dimension() components; a service
	// reply with any other dimension is a DimensionError.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// DimensionError reports an embedding whose dimension does not match the
// dimension the vector index was built with. It is never recoverable by
// defaulting: a wrong-dimension vector corrupts every downstream comparison.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}
