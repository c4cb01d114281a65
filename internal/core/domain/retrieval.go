package domain

import "fmt"

// Metric is the similarity function an index ranks by.
// It is fixed when the index is created and never changes afterwards.
type Metric string

// Supported similarity metrics.
const (
	// MetricCosine ranks by cosine similarity in [-1, 1].
	MetricCosine Metric = "cosine"

	// MetricL2 ranks by negated Euclidean distance, so larger is closer.
	MetricL2 Metric = "l2"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricCosine, MetricL2:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// ParseMetric converts a configuration value to a Metric.
// An empty string selects cosine.
func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return MetricCosine, nil
	}
	m := Metric(s)
	if !m.IsValid() {
		return "", &ConfigurationError{Field: "index.metric", Reason: fmt.Sprintf("unknown metric %q", s)}
	}
	return m, nil
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the similarity under the index metric. Higher is closer.
	Score float64
}

// RetrievalResult is ordered by descending score, ties by insertion order.
type RetrievalResult []ScoredChunk

// Chunks returns the chunks in rank order.
func (r RetrievalResult) Chunks() []Chunk {
	out := make([]Chunk, len(r))
	for i, hit := range r {
		out[i] = hit.Chunk
	}
	return out
}

// Answer is the outcome of one question.
type Answer struct {
	// Text is the generated answer.
	Text string

	// SourceChunks are the chunks the prompt was built from, in rank order.
	SourceChunks []Chunk

	// RawModelOutput is the unprocessed generator response.
	RawModelOutput string
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Files is the number of paths that were loaded.
	Files int

	// Documents is the number of documents the loaders produced.
	Documents int

	// Chunks is the number of chunks added to the index.
	Chunks int

	// Skipped lists per-file failures tolerated in lenient mode.
	Skipped []error
}

// IndexInfo describes a vector index for display.
type IndexInfo struct {
	// Path is where the index is persisted, empty for a transient index.
	Path string

	// Size is the number of stored vectors.
	Size int

	// Dimension is the vector size, 0 while empty.
	Dimension int

	// Metric is the similarity metric.
	Metric Metric

	// Model is the embedding model that produced the vectors.
	Model string
}

// DefaultAnswerInstruction precedes the retrieved context in every prompt
// unless the prompt store overrides it.
const DefaultAnswerInstruction = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer. " +
	"Use three sentences maximum and keep the answer concise."

// NoContextMarker stands in for the context when retrieval found nothing.
const NoContextMarker = "No context available."
