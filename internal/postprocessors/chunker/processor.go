// Package chunker provides a fixed-size sliding-window chunking processor.
package chunker

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of code points per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of code points shared by neighbours.
const DefaultChunkOverlap = 200

// Processor splits document content into overlapping fixed-size chunks.
// Offsets count Unicode code points, never bytes, so multi-byte
// characters are never split.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in code points.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in code points.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker. Invalid sizes are rejected here, before any
// document is processed, with a *domain.ConfigurationError.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := domain.ValidateChunking(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the window width.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the number of code points consecutive chunks share.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Split(*doc), nil
}

// Split walks the content with a window of chunkSize and a stride of
// chunkSize-overlap. The window that reaches the end of the content is
// the last one; it may be shorter than chunkSize and is never padded.
// An empty document yields no chunks.
func (p *Processor) Split(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.Content)
	n := len(runes)
	if n == 0 {
		return nil
	}

	stride := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, n/stride+1)

	for start := 0; start < n; start += stride {
		end := min(start+p.chunkSize, n)
		index := len(chunks)

		meta := domain.CopyMetadata(doc.Metadata)
		meta[domain.MetaChunkIndex] = strconv.Itoa(index)
		meta[domain.MetaSourceDocumentID] = doc.ID
		meta[domain.MetaCharStart] = strconv.Itoa(start)
		meta[domain.MetaCharEnd] = strconv.Itoa(end)

		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, index),
			DocumentID: doc.ID,
			Content:    string(runes[start:end]),
			Index:      index,
			CharStart:  start,
			CharEnd:    end,
			Metadata:   meta,
		})

		if end == n {
			break
		}
	}

	return chunks
}

// ChunkID derives a stable chunk identifier from its document and position,
// so re-chunking the same document maps to the same IDs.
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID+"#"+strconv.Itoa(index))).String()
}
