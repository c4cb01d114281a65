package services

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

// IndexManager ties the active vector index to where it is persisted.
type IndexManager struct {
	index driven.VectorIndex
	store driven.IndexStore
	path  string
}

// NewIndexManager creates a manager for index. An empty path or nil store
// makes the index transient: Save does nothing.
func NewIndexManager(index driven.VectorIndex, store driven.IndexStore, path string) *IndexManager {
	return &IndexManager{index: index, store: store, path: path}
}

// Index returns the managed index.
func (m *IndexManager) Index() driven.VectorIndex {
	return m.index
}

// Info describes the active index.
func (m *IndexManager) Info() domain.IndexInfo {
	return domain.IndexInfo{
		Path:      m.path,
		Size:      m.index.Size(),
		Dimension: m.index.Dimension(),
		Metric:    m.index.Metric(),
		Model:     m.index.Model(),
	}
}

// Save writes a snapshot of the index to its path.
func (m *IndexManager) Save(ctx context.Context) error {
	if m.store == nil || m.path == "" {
		logger.Debug("Transient index, nothing to save")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := m.index.Snapshot()
	if err := m.store.Save(ctx, m.path, snap); err != nil {
		return err
	}
	logger.Debug("Saved %d vectors to %s", len(snap.Items), m.path)
	return nil
}
