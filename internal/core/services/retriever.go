package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// DefaultTopK is used when the retriever is built without a top-K.
const DefaultTopK = 3

// Retriever embeds a query and searches the index with it.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	topK     int
}

// NewRetriever creates a retriever. topK is the default result count.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve returns the k chunks most similar to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	if strings.TrimSpace(query) == "" {
		return nil, &domain.ConfigurationError{Field: "query", Reason: "must not be empty"}
	}
	if k == 0 {
		k = r.topK
	}
	if k < 0 {
		return nil, &domain.ConfigurationError{Field: "k", Reason: "must be greater than 0"}
	}
	if r.index.Size() == 0 {
		return nil, domain.ErrEmptyIndex
	}

	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 embedding, got %d", len(vectors))
	}

	result, err := r.index.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, err
	}
	logger.Debug("Query %q: %d hits (k=%d)", query, len(result), k)
	return result, nil
}
