// Package memory provides an exact, in-process vector index.
// Every search scores the query against all stored vectors.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	vector    search.Float32s
	magnitude float32
	chunk     domain.Chunk
}

// Index is a brute-force vector index guarded by an RWMutex.
// Writers take the write lock for a whole batch, so searches never see a
// partially applied Add.
type Index struct {
	mu        sync.RWMutex
	metric    domain.Metric
	model     string
	dimension int
	entries   []entry
}

// New creates an empty index. An empty metric selects cosine.
func New(metric domain.Metric, model string) (*Index, error) {
	if metric == "" {
		metric = domain.MetricCosine
	}
	if !metric.IsValid() {
		return nil, &domain.ConfigurationError{Field: "index.metric", Reason: fmt.Sprintf("unknown metric %q", metric)}
	}
	return &Index{metric: metric, model: model}, nil
}

// FromSnapshot rebuilds an index from persisted contents.
func FromSnapshot(snap driven.IndexSnapshot) (*Index, error) {
	idx, err := New(snap.Metric, snap.Model)
	if err != nil {
		return nil, err
	}
	idx.dimension = snap.Dimension
	if err := idx.Add(context.Background(), snap.Items); err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	return idx, nil
}

// Add appends items atomically. A wrong-sized vector fails the whole
// batch with *domain.DimensionMismatchError and leaves the index as it was.
func (idx *Index) Add(ctx context.Context, items []driven.IndexedVector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dim := idx.dimension
	if dim == 0 {
		dim = len(items[0].Vector)
	}
	if dim == 0 {
		return fmt.Errorf("%w: vector 0 is empty", domain.ErrInvalidInput)
	}

	for i, item := range items {
		if len(item.Vector) != dim {
			return &domain.DimensionMismatchError{Expected: dim, Got: len(item.Vector), Position: i}
		}
	}

	added := make([]entry, len(items))
	for i, item := range items {
		v := make(search.Float32s, dim)
		copy(v, item.Vector)
		added[i] = entry{vector: v, magnitude: v.Magnitude(), chunk: cloneChunk(item.Chunk)}
	}

	idx.dimension = dim
	idx.entries = append(idx.entries, added...)
	return nil
}

// Search returns the k best matches in descending score order.
// Equal scores keep insertion order.
func (idx *Index) Search(ctx context.Context, query []float32, k int) (domain.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, &domain.ConfigurationError{Field: "k", Reason: fmt.Sprintf("must be positive, got %d", k)}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != idx.dimension {
		return nil, &domain.DimensionMismatchError{Expected: idx.dimension, Got: len(query), Position: -1}
	}

	q := search.Float32s(query)
	qMag := q.Magnitude()

	hits := make(domain.RetrievalResult, len(idx.entries))
	for i := range idx.entries {
		e := &idx.entries[i]
		hits[i] = domain.ScoredChunk{Chunk: e.chunk, Score: idx.score(q, qMag, e)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Chunk = cloneChunk(hits[i].Chunk)
	}
	return hits, nil
}

// cloneChunk copies the metadata map so stored chunks never share it with callers.
func cloneChunk(c domain.Chunk) domain.Chunk {
	if c.Metadata != nil {
		c.Metadata = domain.CopyMetadata(c.Metadata)
	}
	return c
}

// score is cosine similarity or negated Euclidean distance.
func (idx *Index) score(q search.Float32s, qMag float32, e *entry) float64 {
	switch idx.metric {
	case domain.MetricL2:
		return -float64(q.EuclideanDistance(e.vector))
	default:
		if qMag == 0 || e.magnitude == 0 {
			return 0
		}
		sim := 1 - float64(cosineDistanceWithMagnitude(q, e.vector, qMag, e.magnitude))
		if math.IsNaN(sim) {
			return 0
		}
		return sim
	}
}

// Size returns the number of stored vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimension returns the vector size, 0 before the first Add.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Metric returns the similarity metric.
func (idx *Index) Metric() domain.Metric {
	return idx.metric
}

// Model returns the embedding model recorded for this index.
func (idx *Index) Model() string {
	return idx.model
}

// Snapshot copies the current contents for persistence.
func (idx *Index) Snapshot() driven.IndexSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	items := make([]driven.IndexedVector, len(idx.entries))
	for i, e := range idx.entries {
		v := make([]float32, len(e.vector))
		copy(v, e.vector)
		items[i] = driven.IndexedVector{Vector: v, Chunk: cloneChunk(e.chunk)}
	}

	return driven.IndexSnapshot{
		Dimension: idx.dimension,
		Metric:    idx.metric,
		Model:     idx.model,
		Items:     items,
	}
}
