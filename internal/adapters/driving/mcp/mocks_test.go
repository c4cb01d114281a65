package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	hits      domain.RetrievalResult
	err       error
	lastQuery string
	lastK     int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, k int) (domain.RetrievalResult, error) {
	m.lastQuery = query
	m.lastK = k
	return m.hits, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, _ string, _ int) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	info domain.IndexInfo
}

func (m *mockIndexService) Info() domain.IndexInfo { return m.info }

func (m *mockIndexService) Save(_ context.Context) error { return nil }

func chunk(id, source, content string) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: "doc-" + id,
		Content:    content,
		Metadata: map[string]string{
			domain.MetaSource: source,
			domain.MetaTitle:  "Title " + id,
		},
	}
}
