package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorIndex stores (vector, chunk) pairs and ranks them by similarity.
// Growth is append only. The dimension is fixed by the first Add and the
// metric is fixed at construction.
type VectorIndex interface {
	// Add appends a batch atomically: every item becomes visible to
	// searches or none does. Returns *domain.DimensionMismatchError and
	// leaves the index unchanged if any vector has the wrong dimension.
	Add(ctx context.Context, items []IndexedVector) error

	// Search returns the k most similar chunks, descending, ties broken
	// by insertion order. Fewer than k stored returns all of them.
	// Returns domain.ErrEmptyIndex when nothing is stored.
	Search(ctx context.Context, query []float32, k int) (domain.RetrievalResult, error)

	// Size returns the number of stored vectors.
	Size() int

	// Dimension returns the established dimension, or 0 before the first Add.
	Dimension() int

	// Metric returns the similarity metric.
	Metric() domain.Metric

	// Model names the embedding model the stored vectors came from.
	Model() string

	// Snapshot returns a point-in-time copy of the contents for persistence.
	Snapshot() IndexSnapshot
}

// IndexedVector pairs a chunk with its embedding.
type IndexedVector struct {
	Vector []float32
	Chunk  domain.Chunk
}

// IndexSnapshot is the serialisable form of a vector index.
type IndexSnapshot struct {
	// Dimension is the vector size, 0 for an empty index.
	Dimension int

	// Metric is the similarity metric the index was built with.
	Metric domain.Metric

	// Model names the embedding model that produced the vectors.
	Model string

	// Items are in insertion order.
	Items []IndexedVector
}

// IndexStore persists vector indexes across process restarts.
type IndexStore interface {
	// Save writes snapshot to path, replacing any previous contents.
	Save(ctx context.Context, path string, snapshot IndexSnapshot) error

	// Load reads a snapshot from path.
	// Returns domain.ErrNotFound if nothing has been saved there.
	Load(ctx context.Context, path string) (IndexSnapshot, error)
}
