package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetric_IsValid tests metric validation
func TestMetric_IsValid(t *testing.T) {
	assert.True(t, MetricCosine.IsValid())
	assert.True(t, MetricL2.IsValid())
	assert.False(t, Metric("dot").IsValid())
	assert.False(t, Metric("").IsValid())
}

// TestParseMetric tests parsing configuration values
func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	m, err = ParseMetric("l2")
	require.NoError(t, err)
	assert.Equal(t, MetricL2, m)

	_, err = ParseMetric("manhattan")
	assert.ErrorIs(t, err, ErrConfiguration)
}

// TestRetrievalResult_Chunks tests that rank order is preserved
func TestRetrievalResult_Chunks(t *testing.T) {
	result := RetrievalResult{
		{Chunk: Chunk{ID: "b"}, Score: 0.9},
		{Chunk: Chunk{ID: "a"}, Score: 0.5},
	}

	chunks := result.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, "b", chunks[0].ID)
	assert.Equal(t, "a", chunks[1].ID)
}

// TestRetrievalResult_ChunksEmpty tests an empty result
func TestRetrievalResult_ChunksEmpty(t *testing.T) {
	var result RetrievalResult

	assert.Empty(t, result.Chunks())
}
