package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if len(r.builders) != 0 {
		t.Errorf("expected empty builders, got %d", len(r.builders))
	}
}

func TestRegistry_Build_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("nonexistent", nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestRegistry_Names_Sorted(t *testing.T) {
	r := NewRegistry()
	noop := func(_ map[string]any) (driven.PostProcessor, error) { return &mockProcessor{}, nil }
	r.Register("zeta", noop)
	r.Register("alpha", noop)

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	if !r.Has(ChunkerName) {
		t.Fatal("expected chunker to be registered")
	}
}

func TestBuildChunker_ConfigTypes(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"nil config uses defaults", nil},
		{"int values", map[string]any{"chunk_size": 20, "overlap": 5}},
		{"int64 values", map[string]any{"chunk_size": int64(20), "overlap": int64(5)}},
		{"float64 values", map[string]any{"chunk_size": float64(20), "overlap": float64(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := buildChunker(tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != ChunkerName {
				t.Errorf("expected chunker, got %s", p.Name())
			}
		})
	}
}

func TestBuildChunker_InvalidOverlap(t *testing.T) {
	_, err := buildChunker(map[string]any{"chunk_size": 10, "overlap": 10})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNewDefaultPipeline(t *testing.T) {
	p, err := NewDefaultPipeline(domain.ChunkingConfig{ChunkSize: 20, Overlap: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := p.Process(context.Background(), &domain.Document{
		ID:      "sky",
		Content: "The sky is blue. Grass is green. Water is wet.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestNewDefaultPipeline_Invalid(t *testing.T) {
	_, err := NewDefaultPipeline(domain.ChunkingConfig{ChunkSize: 5, Overlap: 9})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
