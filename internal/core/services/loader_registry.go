package services

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LoaderRegistry implements the interface.
var _ driven.LoaderRegistry = (*LoaderRegistry)(nil)

// LoaderRegistry selects a loader by file extension.
// A later registration for an extension replaces the earlier one, so a
// new format is added by registering a loader, not by editing others.
type LoaderRegistry struct {
	mu      sync.RWMutex
	byExt   map[string]driven.Loader
	loaders []driven.Loader
}

// NewLoaderRegistry creates an empty registry.
func NewLoaderRegistry() *LoaderRegistry {
	return &LoaderRegistry{
		byExt: make(map[string]driven.Loader),
	}
}

// Register adds a loader for every extension it declares.
func (r *LoaderRegistry) Register(loader driven.Loader) {
	if loader == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.loaders = append(r.loaders, loader)
	for _, ext := range loader.Extensions() {
		r.byExt[normaliseExt(ext)] = loader
	}
}

// Resolve returns the loader for path's extension.
// Returns *domain.UnsupportedFormatError if none is registered.
func (r *LoaderRegistry) Resolve(path string) (driven.Loader, error) {
	ext := normaliseExt(filepath.Ext(path))

	r.mu.RLock()
	defer r.mu.RUnlock()

	if loader, ok := r.byExt[ext]; ok && ext != "" {
		return loader, nil
	}
	return nil, &domain.UnsupportedFormatError{Path: path, Extension: ext}
}

// Extensions returns all supported extensions, sorted.
func (r *LoaderRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Loaders returns registered loaders in registration order.
func (r *LoaderRegistry) Loaders() []driven.Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]driven.Loader, len(r.loaders))
	copy(out, r.loaders)
	return out
}

// normaliseExt lower-cases ext and ensures a leading dot.
func normaliseExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
