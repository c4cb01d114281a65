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
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// seededIndex returns an index holding one chunk per text, vectors from vectorFor.
func seededIndex(t *testing.T, texts ...string) *memory.Index {
	t.Helper()
	index, err := memory.New(domain.MetricCosine, "fake-embed")
	require.NoError(t, err)

	items := make([]driven.IndexedVector, len(texts))
	for i, text := range texts {
		items[i] = driven.IndexedVector{
			Vector: vectorFor(text),
			Chunk: domain.Chunk{
				ID:       text,
				Content:  text,
				Metadata: map[string]string{domain.MetaSource: text + ".txt"},
			},
		}
	}
	require.NoError(t, index.Add(context.Background(), items))
	return index
}

func TestRetriever_RanksBySimilarity(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := NewRetriever(embedder, seededIndex(t, "aaaa", "bbbb", "cccc", "aabb"), 2)

	result, err := r.Retrieve(context.Background(), "aaa", 0)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "aaaa", result[0].Chunk.Content)
	assert.Equal(t, "aabb", result[1].Chunk.Content)
	assert.GreaterOrEqual(t, result[0].Score, result[1].Score)

	// The query goes out as a single-item batch.
	require.Equal(t, 1, embedder.calls())
	assert.Equal(t, []string{"aaa"}, embedder.batches[0])
}

func TestRetriever_KLargerThanIndex(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, seededIndex(t, "a", "b", "c"), 3)

	result, err := r.Retrieve(context.Background(), "abc", 10)
	require.NoError(t, err)
	assert.Len(t, result, 3)
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].Score, result[i].Score)
	}
}

func TestRetriever_Deterministic(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, seededIndex(t, "ab", "ba", "abc", "c"), 3)

	first, err := r.Retrieve(context.Background(), "ab", 3)
	require.NoError(t, err)
	second, err := r.Retrieve(context.Background(), "ab", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetriever_EmptyIndex(t *testing.T) {
	index, err := memory.New(domain.MetricCosine, "fake-embed")
	require.NoError(t, err)
	embedder := &fakeEmbedder{}

	_, err = NewRetriever(embedder, index, 3).Retrieve(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.Equal(t, 0, embedder.calls())
}

func TestRetriever_InvalidArguments(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, seededIndex(t, "a"), 3)

	_, err := r.Retrieve(context.Background(), "  ", 1)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = r.Retrieve(context.Background(), "a", -1)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "k", cfgErr.Field)
}

func TestRetriever_EmbeddingError(t *testing.T) {
	embedder := &fakeEmbedder{failOn: "a", err: errors.New("backend down")}
	r := NewRetriever(embedder, seededIndex(t, "b"), 3)

	_, err := r.Retrieve(context.Background(), "a", 1)
	assert.EqualError(t, err, "backend down")
}

func TestNewRetriever_DefaultTopK(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, seededIndex(t, "a", "b", "c", "ab", "bc"), 0)

	result, err := r.Retrieve(context.Background(), "a", 0)
	require.NoError(t, err)
	assert.Len(t, result, DefaultTopK)
}

// lexicalEmbedder counts occurrences of a fixed vocabulary of words.
type lexicalEmbedder struct{}

var lexicalVocabulary = []string{"sky", "blue", "grass", "green", "water", "wet", "is"}

func (lexicalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, len(lexicalVocabulary))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	for _, w := range words {
		for i, term := range lexicalVocabulary {
			if w == term {
				v[i]++
			}
		}
	}
	return v, nil
}

func (e lexicalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

func (lexicalEmbedder) Dimensions() int            { return len(lexicalVocabulary) }
func (lexicalEmbedder) ModelName() string          { return "lexical" }
func (lexicalEmbedder) Ping(context.Context) error { return nil }
func (lexicalEmbedder) Close() error               { return nil }

func TestRetriever_ChunkedDocumentEndToEnd(t *testing.T) {
	const text = "The sky is blue. Grass is green. Water is wet."

	loader := &mockLoader{
		name: "fake",
		exts: []string{".txt"},
		docs: map[string][]domain.Document{"facts.txt": {doc("facts.txt", text)}},
		errs: map[string]error{},
	}
	registry := NewLoaderRegistry()
	registry.Register(loader)

	pipeline, err := postprocessors.NewDefaultPipeline(domain.ChunkingConfig{ChunkSize: 20, Overlap: 5})
	require.NoError(t, err)
	index, err := memory.New(domain.MetricCosine, "lexical")
	require.NoError(t, err)
	embedder := lexicalEmbedder{}

	report, err := NewIngestService(registry, pipeline, embedder, index, 2, 1).
		Ingest(context.Background(), []string{"facts.txt"}, driving.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Chunks)
	assert.Equal(t, 3, index.Size())

	result, err := NewRetriever(embedder, index, 3).Retrieve(context.Background(), "What color is grass?", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Contains(t, result[0].Chunk.Content, "Grass is green.")
	assert.Equal(t, 15, result[0].Chunk.CharStart)
}
