package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Default ingestion parameters.
const (
	DefaultIngestWorkers   = 4
	DefaultIngestBatchSize = 100
)

// IngestService builds the index from files: load, chunk, embed, append.
type IngestService struct {
	loaders   driven.LoaderRegistry
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	workers   int
	batchSize int
}

// NewIngestService creates an ingestion service.
// workers bounds concurrent embedding calls and batchSize is the number
// of chunks handed to each call. Non-positive values use the defaults.
func NewIngestService(
	loaders driven.LoaderRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	workers, batchSize int,
) *IngestService {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	if batchSize <= 0 {
		batchSize = DefaultIngestBatchSize
	}
	return &IngestService{
		loaders:   loaders,
		pipeline:  pipeline,
		embedder:  embedder,
		index:     index,
		workers:   workers,
		batchSize: batchSize,
	}
}

// Ingest loads, chunks and embeds every path, then appends all chunks to
// the index with a single Add. Nothing reaches the index if ctx is
// cancelled or any step fails.
func (s *IngestService) Ingest(ctx context.Context, paths []string, opts driving.IngestOptions) (*domain.IngestReport, error) {
	logger.Section("Ingestion")
	logger.Debug("Paths: %d, lenient: %v", len(paths), opts.Lenient)

	report := &domain.IngestReport{}

	docs, err := s.load(ctx, paths, opts, report)
	if err != nil {
		return nil, err
	}
	report.Documents = len(docs)

	chunks, err := s.chunk(ctx, docs)
	if err != nil {
		return nil, err
	}
	logger.Debug("Chunked %d documents into %d chunks", len(docs), len(chunks))
	if len(chunks) == 0 {
		return report, nil
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	items := make([]driven.IndexedVector, len(chunks))
	for i := range chunks {
		items[i] = driven.IndexedVector{Vector: vectors[i], Chunk: chunks[i]}
	}
	if err := s.index.Add(ctx, items); err != nil {
		return nil, fmt.Errorf("add to index: %w", err)
	}

	report.Chunks = len(items)
	logger.Debug("Indexed %d chunks, index size %d", report.Chunks, s.index.Size())
	return report, nil
}

// load resolves and runs the loader for each path in order.
func (s *IngestService) load(ctx context.Context, paths []string, opts driving.IngestOptions, report *domain.IngestReport) ([]domain.Document, error) {
	var docs []domain.Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loader, err := s.loaders.Resolve(path)
		if err != nil {
			if !opts.Lenient {
				return nil, err
			}
			logger.Warn("Skipping %s: %v", path, err)
			report.Skipped = append(report.Skipped, err)
			continue
		}

		loaded, err := loader.Load(ctx, path, driven.LoadOptions{Lenient: opts.Lenient})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !opts.Lenient {
				return nil, err
			}
			logger.Warn("Partial load of %s: %v", path, err)
			report.Skipped = append(report.Skipped, err)
			if len(loaded) == 0 {
				continue
			}
		}

		logger.Debug("Loaded %s with %s: %d documents", path, loader.Name(), len(loaded))
		report.Files++
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// chunk runs every document through the post-processor pipeline.
func (s *IngestService) chunk(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i := range docs {
		docChunks, err := s.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", docs[i].Source(), err)
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks, nil
}

// embed embeds chunks in batches on a bounded pool. Once ctx is cancelled
// or a batch fails no further batch is started. The embedder sees the
// cancellation, so retries stop; a request already on the wire is left to
// the embedder's timeout layer to finish.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	batches := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		if gctx.Err() != nil {
			break
		}
		end := min(start+s.batchSize, len(chunks))
		batches++

		g.Go(func() error {
			// g.Go may have blocked on a full pool while gctx was cancelled.
			if err := gctx.Err(); err != nil {
				return err
			}

			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Content)
			}

			got, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(got) != len(texts) {
				return &domain.EmbeddingServiceError{
					Model:    s.embedder.ModelName(),
					Attempts: 1,
					Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(got)),
				}
			}
			copy(vectors[start:end], got)
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("Ingestion cancelled, discarding %d chunks", len(chunks))
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Embedded %d chunks in %d batches", len(chunks), batches)
	return vectors, nil
}
