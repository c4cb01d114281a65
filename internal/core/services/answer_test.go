package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func hit(content string, score float64, meta map[string]string) domain.ScoredChunk {
	return domain.ScoredChunk{Chunk: domain.Chunk{ID: content, Content: content, Metadata: meta}, Score: score}
}

func TestBuildPrompt(t *testing.T) {
	hits := domain.RetrievalResult{
		hit("The sky is blue.", 0.9, map[string]string{
			domain.MetaSource:     "docs/sky.pdf",
			domain.MetaPageNumber: "2",
			domain.MetaFormat:     "pdf",
			domain.MetaCharStart:  "0",
		}),
		hit("Grass is green.", 0.5, nil),
	}

	got := BuildPrompt("Answer briefly.", " What colour is the sky? ", hits)
	want := "Answer briefly.\n\n" +
		"Context:\n" +
		"[1] (source: docs/sky.pdf, page_number: 2, format: pdf)\n" +
		"The sky is blue.\n\n" +
		"[2] (source: unknown)\n" +
		"Grass is green.\n\n" +
		"Question: What colour is the sky?\n\n" +
		"Answer:"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_NoContext(t *testing.T) {
	got := BuildPrompt(domain.DefaultAnswerInstruction, "q?", nil)
	assert.Contains(t, got, "Context:\n"+domain.NoContextMarker+"\n\nQuestion: q?")
	assert.True(t, strings.HasPrefix(got, domain.DefaultAnswerInstruction))
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	meta := map[string]string{"z": "1", "y": "2", "x": "3", domain.MetaTitle: "T"}
	hits := domain.RetrievalResult{hit("c", 1, meta)}

	first := BuildPrompt("i", "q", hits)
	for range 20 {
		assert.Equal(t, first, BuildPrompt("i", "q", hits))
	}
	assert.Contains(t, first, "(title: T, x: 3, y: 2, z: 1)")
}

func TestAnswer_UsesRetrievedChunksInRankOrder(t *testing.T) {
	retriever := &fakeRetriever{result: domain.RetrievalResult{
		hit("first", 0.9, map[string]string{domain.MetaSource: "a.txt"}),
		hit("second", 0.4, map[string]string{domain.MetaSource: "b.txt"}),
	}}
	llm := &fakeLLM{reply: "  It is blue.\n"}
	opts := driven.GenerateOptions{MaxTokens: 64, Temperature: 0.2}

	answer, err := NewAnswerService(retriever, llm, nil, opts).Answer(context.Background(), "colour?", 2)
	require.NoError(t, err)

	assert.Equal(t, "It is blue.", answer.Text)
	assert.Equal(t, "  It is blue.\n", answer.RawModelOutput)
	require.Len(t, answer.SourceChunks, 2)
	assert.Equal(t, "first", answer.SourceChunks[0].Content)
	assert.Equal(t, "second", answer.SourceChunks[1].Content)
	assert.Equal(t, 2, retriever.gotK)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, domain.DefaultAnswerInstruction))
	assert.Less(t, strings.Index(prompt, "first"), strings.Index(prompt, "second"))
	assert.Contains(t, prompt, "Question: colour?")
	assert.Equal(t, opts, llm.opts[0])
}

func TestAnswer_EmptyIndexStillAnswers(t *testing.T) {
	index, err := memory.New(domain.MetricCosine, "fake-embed")
	require.NoError(t, err)
	llm := &fakeLLM{reply: "I don't know."}

	svc := NewAnswerService(NewRetriever(&fakeEmbedder{}, index, 3), llm, nil, driven.GenerateOptions{})
	answer, err := svc.Answer(context.Background(), "anything?", 0)
	require.NoError(t, err)

	assert.Equal(t, "I don't know.", answer.Text)
	assert.NotNil(t, answer.SourceChunks)
	assert.Empty(t, answer.SourceChunks)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], domain.NoContextMarker)
}

func TestAnswer_ZeroMatches(t *testing.T) {
	llm := &fakeLLM{reply: "unknown"}
	svc := NewAnswerService(&fakeRetriever{result: domain.RetrievalResult{}}, llm, nil, driven.GenerateOptions{})

	answer, err := svc.Answer(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, answer.SourceChunks)
	assert.Contains(t, llm.prompts[0], domain.NoContextMarker)
}

func TestAnswer_RetrievalErrorPropagates(t *testing.T) {
	llm := &fakeLLM{}
	retrieveErr := &domain.EmbeddingServiceError{Model: "m", Attempts: 5, Err: errors.New("down")}
	svc := NewAnswerService(&fakeRetriever{err: retrieveErr}, llm, nil, driven.GenerateOptions{})

	_, err := svc.Answer(context.Background(), "q", 3)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
	assert.Empty(t, llm.prompts)
}

func TestAnswer_GenerationErrorPropagates(t *testing.T) {
	genErr := &domain.GenerationServiceError{Model: "m", Attempts: 2, Err: errors.New("overloaded")}
	svc := NewAnswerService(&fakeRetriever{}, &fakeLLM{err: genErr}, nil, driven.GenerateOptions{})

	_, err := svc.Answer(context.Background(), "q", 3)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
	assert.True(t, domain.IsRetryLater(err))
}

func TestAnswer_PromptStore(t *testing.T) {
	tests := []struct {
		name    string
		prompts *fakePrompts
		want    string
	}{
		{
			name:    "override",
			prompts: &fakePrompts{prompts: map[string]string{driven.PromptAnswerInstruction: "Reply in French.\n"}},
			want:    "Reply in French.",
		},
		{
			name:    "blank falls back",
			prompts: &fakePrompts{prompts: map[string]string{driven.PromptAnswerInstruction: "   "}},
			want:    domain.DefaultAnswerInstruction,
		},
		{
			name:    "error falls back",
			prompts: &fakePrompts{err: errors.New("permission denied")},
			want:    domain.DefaultAnswerInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{reply: "ok"}
			svc := NewAnswerService(&fakeRetriever{}, llm, tt.prompts, driven.GenerateOptions{})

			_, err := svc.Answer(context.Background(), "q", 1)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(llm.prompts[0], tt.want+"\n\nContext:"), llm.prompts[0])
		})
	}
}
