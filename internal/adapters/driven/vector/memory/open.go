package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Open loads the index saved at path, or creates an empty one when
// nothing has been saved there yet. An existing index must have been
// built with the same metric and embedding model, since new vectors
// are appended to it.
func Open(ctx context.Context, store driven.IndexStore, path string, metric domain.Metric, model string) (*Index, error) {
	if metric == "" {
		metric = domain.MetricCosine
	}

	snap, err := store.Load(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("no index at %s, starting empty", path)
		return New(metric, model)
	}
	if err != nil {
		return nil, err
	}

	if snap.Metric != metric {
		return nil, &domain.ConfigurationError{
			Field:  "index.metric",
			Reason: fmt.Sprintf("index at %s uses %s, configured %s", path, snap.Metric, metric),
		}
	}
	if snap.Model != "" && model != "" && snap.Model != model {
		return nil, &domain.ConfigurationError{
			Field:  "embedding.model",
			Reason: fmt.Sprintf("index at %s was built with %s, configured %s", path, snap.Model, model),
		}
	}
	if snap.Model == "" {
		snap.Model = model
	}

	idx, err := FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded index from %s: %d vectors, dimension %d", path, idx.Size(), idx.Dimension())
	return idx, nil
}
