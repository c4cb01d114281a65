package mcp

import (
	"context"
	"errors"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default from configuration)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages to use as context (default from configuration)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string        `json:"answer"`
	Sources []ChunkOutput `json:"sources"`
}

// IndexInfoInput is the empty input schema for the index_info tool.
type IndexInfoInput struct{}

// IndexInfoOutput is the output schema for the index_info tool.
type IndexInfoOutput struct {
	Path      string `json:"path,omitempty"`
	Size      int    `json:"size"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Model     string `json:"model"`
}

// ChunkOutput represents a single retrieved passage.
type ChunkOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source,omitempty"`
	Title      string  `json:"title,omitempty"`
	Page       int     `json:"page,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the indexed passages most similar to a query",
	}, s.handleSearch)

	if s.ports.Answer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question using only the indexed documents as context",
		}, s.handleAsk)
	}

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_info",
			Description: "Describe the active vector index",
		}, s.handleIndexInfo)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := s.ports.Retrieval.Retrieve(ctx, input.Query, input.K)
	if errors.Is(err, domain.ErrEmptyIndex) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: emptyIndexMessage}},
		}, SearchOutput{Results: []ChunkOutput{}}, nil
	}
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]ChunkOutput, len(hits)),
		Count:   len(hits),
	}
	for i, hit := range hits {
		output.Results[i] = chunkOutput(hit.Chunk)
		output.Results[i].Score = hit.Score
	}
	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Answer.Answer(ctx, input.Question, input.K)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:  answer.Text,
		Sources: make([]ChunkOutput, len(answer.SourceChunks)),
	}
	for i, c := range answer.SourceChunks {
		output.Sources[i] = chunkOutput(c)
	}
	return nil, output, nil
}

// handleIndexInfo handles the index_info tool invocation.
func (s *Server) handleIndexInfo(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ IndexInfoInput,
) (*mcp.CallToolResult, IndexInfoOutput, error) {
	return nil, indexInfoOutput(s.ports.Index.Info()), nil
}

func chunkOutput(c domain.Chunk) ChunkOutput {
	out := ChunkOutput{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		Source:     c.Metadata[domain.MetaSource],
		Title:      c.Metadata[domain.MetaTitle],
		Content:    c.Content,
	}
	if page, err := strconv.Atoi(c.Metadata[domain.MetaPageNumber]); err == nil {
		out.Page = page
	}
	return out
}

func indexInfoOutput(info domain.IndexInfo) IndexInfoOutput {
	return IndexInfoOutput{
		Path:      info.Path,
		Size:      info.Size,
		Dimension: info.Dimension,
		Metric:    info.Metric.String(),
		Model:     info.Model,
	}
}
