// Package index provides nearest-neighbor search over pre-normalized ticket
// embeddings. Similarity is inner product, which equals cosine similarity
// because both the indexed vectors and the query vector are unit-normalized.
package index

import (
	"context"
)

// Hit is a single search match. Position is the item's position in the index,
// which by the ingestion contract equals the ticket's position in the metadata
// store.
type Hit struct {
	Position int
	Score    float32
}

// Searcher defines the read-only search contract over the ticket index.
type Searcher interface {
	// Search returns up to k hits ordered by descending similarity.
	// Equal similarities are ordered by ascending position (the stable
	// insertion order of the underlying index).
	Search(ctx context.Context, queryVector []float32, k int) ([]Hit, error)
}
