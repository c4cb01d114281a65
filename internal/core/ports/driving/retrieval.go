package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RetrievalService finds the chunks most similar to a query.
type RetrievalService interface {
	// Retrieve embeds query and returns the top k chunks.
	// k == 0 uses the configured default; a negative k is a
	// *domain.ConfigurationError.
	// Returns domain.ErrEmptyIndex when nothing has been ingested.
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}

// AnswerService answers questions from retrieved context.
type AnswerService interface {
	// Answer retrieves context for question and asks the generator.
	// An empty index still yields an answer with no sources.
	Answer(ctx context.Context, question string, k int) (*domain.Answer, error)
}

// IndexService manages the active vector index.
type IndexService interface {
	// Info describes the active index.
	Info() domain.IndexInfo

	// Save persists the active index to its path.
	Save(ctx context.Context) error
}
