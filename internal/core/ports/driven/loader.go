package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Loader extracts documents from one source format (e.g., PDF, Markdown).
// Loaders are stateless and safe for concurrent use.
type Loader interface {
	// Name identifies the loader in logs and document metadata.
	Name() string

	// Extensions returns the lower-case file extensions handled, with the dot.
	Extensions() []string

	// Load reads the file at path and returns one document per logical unit.
	// Failures are reported as *domain.DocumentProcessingError naming the path.
	// Partially parsed content is never returned silently: with
	// opts.Lenient, successful units are returned alongside an error
	// listing every failed unit; otherwise the first failure aborts.
	Load(ctx context.Context, path string, opts LoadOptions) ([]domain.Document, error)
}

// LoadOptions tunes a single Load call.
type LoadOptions struct {
	// Lenient aggregates per-unit failures instead of failing fast.
	Lenient bool
}

// LoaderRegistry selects the loader for a path by its extension.
// It is an explicit object built at startup and handed to the services
// that need it; there is no process-wide registry.
type LoaderRegistry interface {
	// Register adds a loader. A later loader claiming an extension
	// replaces the earlier one for that extension.
	Register(loader Loader)

	// Resolve returns the loader for path.
	// Returns *domain.UnsupportedFormatError if no loader matches.
	Resolve(path string) (Loader, error)

	// Extensions returns every supported extension, sorted.
	Extensions() []string
}
