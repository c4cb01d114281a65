package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// sourceKeys are the metadata fields shown next to each context chunk, in order.
var sourceKeys = []string{domain.MetaSource, domain.MetaTitle, domain.MetaPageNumber}

// AnswerService answers questions from retrieved chunks.
type AnswerService struct {
	retriever driving.RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	opts      driven.GenerateOptions
}

// NewAnswerService creates an answer service.
// prompts may be nil, in which case the built-in instruction is used.
func NewAnswerService(
	retriever driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	opts driven.GenerateOptions,
) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		opts:      opts,
	}
}

// Answer retrieves context for question and generates an answer from it.
// An empty index is answered with no context rather than an error.
func (s *AnswerService) Answer(ctx context.Context, question string, k int) (*domain.Answer, error) {
	logger.Section("Answer Synthesis")

	hits, err := s.retriever.Retrieve(ctx, question, k)
	switch {
	case errors.Is(err, domain.ErrEmptyIndex):
		logger.Debug("Index is empty, answering without context")
		hits = nil
	case err != nil:
		return nil, err
	}

	prompt := BuildPrompt(s.instruction(), question, hits)
	logger.Debug("Prompt: %d chunks, %d bytes", len(hits), len(prompt))

	raw, err := s.llm.Generate(ctx, prompt, s.opts)
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:           strings.TrimSpace(raw),
		SourceChunks:   hits.Chunks(),
		RawModelOutput: raw,
	}, nil
}

func (s *AnswerService) instruction() string {
	if s.prompts == nil {
		return domain.DefaultAnswerInstruction
	}
	text, err := s.prompts.Load(driven.PromptAnswerInstruction)
	if err != nil {
		logger.Warn("Prompt %s unavailable, using default: %v", driven.PromptAnswerInstruction, err)
		return domain.DefaultAnswerInstruction
	}
	if strings.TrimSpace(text) == "" {
		return domain.DefaultAnswerInstruction
	}
	return strings.TrimSpace(text)
}

// BuildPrompt assembles the generation prompt. The output depends only
// on its arguments: chunks appear in rank order, each labelled with its
// source metadata. With no chunks the context is domain.NoContextMarker.
func BuildPrompt(instruction, question string, hits domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nContext:\n")

	if len(hits) == 0 {
		b.WriteString(domain.NoContextMarker)
	}
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, sourceLabel(hit.Chunk))
		b.WriteString(hit.Chunk.Content)
	}

	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// sourceLabel renders the well-known source fields first, then any
// remaining document metadata sorted by key. Offsets and IDs are left out.
func sourceLabel(c domain.Chunk) string {
	parts := make([]string, 0, len(c.Metadata))
	seen := map[string]bool{}
	for _, key := range sourceKeys {
		if v := c.Metadata[key]; v != "" {
			parts = append(parts, key+": "+v)
		}
		seen[key] = true
	}

	var extra []string
	for key, v := range c.Metadata {
		if seen[key] || v == "" || isChunkKey(key) {
			continue
		}
		extra = append(extra, key+": "+v)
	}
	sort.Strings(extra)
	parts = append(parts, extra...)

	if len(parts) == 0 {
		return "(source: unknown)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func isChunkKey(key string) bool {
	switch key {
	case domain.MetaChunkIndex, domain.MetaSourceDocumentID, domain.MetaCharStart, domain.MetaCharEnd, domain.MetaSourceFile:
		return true
	default:
		return false
	}
}
