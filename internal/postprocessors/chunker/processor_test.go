package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.ChunkSize())
		}
		if p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p, err := New(WithChunkSize(500), WithOverlap(100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ChunkSize() != 500 || p.Overlap() != 100 {
			t.Errorf("expected 500/100, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	t.Run("zero overlap", func(t *testing.T) {
		if _, err := New(WithChunkSize(10), WithOverlap(0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	invalid := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals chunk size", 100, 100},
		{"overlap exceeds chunk size", 100, 150},
		{"zero chunk size", 0, 0},
		{"negative chunk size", -5, 0},
		{"negative overlap", 10, -1},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			if p != nil {
				t.Error("expected nil processor")
			}
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	p, _ := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p, _ := New()
	doc := &domain.Document{ID: "test-doc", Content: ""}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	p, _ := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &domain.Document{ID: "d", Content: "text"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProcessor_Split_SmallContent(t *testing.T) {
	p, _ := New(WithChunkSize(100), WithOverlap(20))
	doc := domain.Document{ID: "test-doc", Content: "short"}

	chunks := p.Split(doc)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "short" || chunks[0].CharStart != 0 || chunks[0].CharEnd != 5 {
		t.Errorf("unexpected chunk %+v", chunks[0])
	}
}

func TestProcessor_Split_ExactOffsets(t *testing.T) {
	p, _ := New(WithChunkSize(20), WithOverlap(5))
	doc := domain.Document{ID: "sky", Content: "The sky is blue. Grass is green. Water is wet."}

	chunks := p.Split(doc)

	want := []struct {
		start, end int
		text       string
	}{
		{0, 20, "The sky is blue. Gra"},
		{15, 35, ". Grass is green. Wa"},
		{30, 46, "n. Water is wet."},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		c := chunks[i]
		if c.CharStart != w.start || c.CharEnd != w.end || c.Content != w.text {
			t.Errorf("chunk %d: got [%d,%d) %q, want [%d,%d) %q", i, c.CharStart, c.CharEnd, c.Content, w.start, w.end, w.text)
		}
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
	}
	if !strings.Contains(chunks[1].Content, "Grass is green.") {
		t.Error("expected the second chunk to hold the grass sentence")
	}
}

func TestProcessor_Split_Invariants(t *testing.T) {
	contents := []string{
		"a",
		strings.Repeat("abcdefghij", 37),
		"héllo wörld, ünïcode ✓ 日本語のテキスト 🙂🙂🙂 end",
		strings.Repeat("日本", 250),
	}
	params := []struct{ size, overlap int }{
		{1, 0}, {7, 3}, {10, 0}, {20, 5}, {50, 49}, {1000, 200},
	}

	for _, content := range contents {
		for _, prm := range params {
			p, err := New(WithChunkSize(prm.size), WithOverlap(prm.overlap))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			chunks := p.Split(domain.Document{ID: "d", Content: content})
			assertInvariants(t, content, chunks, prm.size, prm.overlap)
		}
	}
}

// assertInvariants checks offsets, overlap regions and round-trip reconstruction.
func assertInvariants(t *testing.T, content string, chunks []domain.Chunk, size, overlap int) {
	t.Helper()

	runes := []rune(content)
	var rebuilt []rune

	for i, c := range chunks {
		text := []rune(c.Content)
		if c.CharEnd-c.CharStart != len(text) {
			t.Fatalf("chunk %d: offsets [%d,%d) disagree with length %d", i, c.CharStart, c.CharEnd, len(text))
		}
		if string(runes[c.CharStart:c.CharEnd]) != c.Content {
			t.Fatalf("chunk %d: content does not match source span", i)
		}
		if len(text) > size {
			t.Fatalf("chunk %d: length %d exceeds chunk size %d", i, len(text), size)
		}
		if i < len(chunks)-1 && len(text) != size {
			t.Fatalf("chunk %d: only the last chunk may be short", i)
		}

		if i == 0 {
			rebuilt = append(rebuilt, text...)
			continue
		}

		prev := chunks[i-1]
		if c.CharStart < prev.CharStart {
			t.Fatalf("chunk %d: char_start went backwards", i)
		}
		if prev.CharEnd-c.CharStart != overlap {
			t.Fatalf("chunk %d: expected overlap %d, got %d", i, overlap, prev.CharEnd-c.CharStart)
		}
		prevText := []rune(prev.Content)
		if string(prevText[len(prevText)-overlap:]) != string(text[:overlap]) {
			t.Fatalf("chunk %d: overlap region differs from previous chunk", i)
		}
		rebuilt = append(rebuilt, text[overlap:]...)
	}

	if string(rebuilt) != content {
		t.Fatalf("round trip failed for size=%d overlap=%d", size, overlap)
	}
}

func TestProcessor_Split_Metadata(t *testing.T) {
	p, _ := New(WithChunkSize(4), WithOverlap(1))
	doc := domain.Document{
		ID:       "doc-1",
		Content:  "abcdefg",
		Metadata: map[string]string{domain.MetaSource: "/tmp/a.txt"},
	}

	chunks := p.Split(doc)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	m := chunks[1].Metadata
	expect := map[string]string{
		domain.MetaSource:           "/tmp/a.txt",
		domain.MetaChunkIndex:       "1",
		domain.MetaSourceDocumentID: "doc-1",
		domain.MetaCharStart:        "3",
		domain.MetaCharEnd:          "7",
	}
	for k, v := range expect {
		if m[k] != v {
			t.Errorf("metadata %s: expected %q, got %q", k, v, m[k])
		}
	}
	if len(doc.Metadata) != 1 {
		t.Error("document metadata must not be modified")
	}
	if chunks[1].DocumentID != "doc-1" {
		t.Errorf("expected document ID doc-1, got %s", chunks[1].DocumentID)
	}
}

func TestProcessor_Split_Deterministic(t *testing.T) {
	p, _ := New(WithChunkSize(5), WithOverlap(2))
	doc := domain.Document{ID: "doc-1", Content: "the quick brown fox"}

	first := p.Split(doc)
	second := p.Split(doc)

	if len(first) != len(second) {
		t.Fatal("chunk counts differ between runs")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: IDs differ between runs", i)
		}
	}
	if first[0].ID == first[1].ID {
		t.Error("chunk IDs must be unique within a document")
	}
}

func TestProcessor_Split_MultiByteNotSplit(t *testing.T) {
	p, _ := New(WithChunkSize(2), WithOverlap(0))
	doc := domain.Document{ID: "d", Content: "日本語"}

	chunks := p.Split(doc)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "日本" || chunks[1].Content != "語" {
		t.Errorf("unexpected chunks %q %q", chunks[0].Content, chunks[1].Content)
	}
}
