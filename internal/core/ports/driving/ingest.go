package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IngestService turns files into indexed chunks.
type IngestService interface {
	// Ingest loads, chunks and embeds every path, then appends all chunks
	// to the index in one step. Nothing is committed if the context is
	// cancelled or any embedding batch fails.
	Ingest(ctx context.Context, paths []string, opts IngestOptions) (*domain.IngestReport, error)
}

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// Lenient skips files that fail to load instead of aborting, and asks
	// multi-unit loaders to keep the units that did load.
	Lenient bool
}
