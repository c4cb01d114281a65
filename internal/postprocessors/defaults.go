package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// ChunkerName is the registry name of the chunker.
const ChunkerName = "chunker"

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, buildChunker)
}

// NewDefaultPipeline builds the chunking pipeline for cfg.
// Invalid sizes fail here, at construction.
func NewDefaultPipeline(cfg domain.ChunkingConfig) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline([]string{ChunkerName}, map[string]map[string]any{
		ChunkerName: ChunkerConfig(cfg),
	})
}

// ChunkerConfig converts chunking settings to the generic builder config.
func ChunkerConfig(cfg domain.ChunkingConfig) map[string]any {
	return map[string]any{
		"chunk_size": cfg.ChunkSize,
		"overlap":    cfg.Overlap,
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Code points per chunk (default: 1000)
//   - overlap (int): Code points shared by consecutive chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	p, err := chunker.New(opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
