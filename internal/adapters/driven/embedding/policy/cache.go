package policy

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure CachedService implements the interface.
var _ driven.EmbeddingService = (*CachedService)(nil)

// Cache stores embeddings by key.
type Cache interface {
	// Get returns the vector for key and whether it was present.
	Get(key string) ([]float32, bool, error)

	// Put stores vector under key.
	Put(key string, vector []float32) error

	// Close releases resources.
	Close() error
}

// CachedService serves repeated texts from a Cache and only sends misses
// to the wrapped service.
type CachedService struct {
	driven.EmbeddingService
	cache Cache
}

// Cached wraps svc with cache. Keys combine the model name and the
// SHA-256 of the text, so switching models never returns stale vectors.
func Cached(svc driven.EmbeddingService, cache Cache) *CachedService {
	return &CachedService{EmbeddingService: svc, cache: cache}
}

// Embed embeds a single text.
func (s *CachedService) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, s, text)
}

// EmbedBatch returns cached vectors where possible and embeds the rest
// in one call, preserving input order. Cache read and write failures are
// logged and treated as misses.
func (s *CachedService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		keys[i] = CacheKey(s.ModelName(), text)
		vector, ok, err := s.cache.Get(keys[i])
		if err != nil {
			logger.Warn("embedding cache read failed: %v", err)
		}
		if ok {
			out[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missTexts), len(missTexts))
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := s.EmbeddingService.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missTexts), len(vectors))
	}

	for j, vector := range vectors {
		i := missIdx[j]
		out[i] = vector
		if err := s.cache.Put(keys[i], vector); err != nil {
			logger.Warn("embedding cache write failed: %v", err)
		}
	}
	return out, nil
}

// Close closes the cache and the wrapped service.
func (s *CachedService) Close() error {
	return errors.Join(s.cache.Close(), s.EmbeddingService.Close())
}

// CacheKey derives the cache key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

// BadgerCache is a Cache backed by a Badger key-value store.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens (or creates) a cache in dir.
// An empty dir keeps the cache in memory.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get returns the vector stored under key.
func (c *BadgerCache) Get(key string) ([]float32, bool, error) {
	var vector []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val)%4 != 0 {
				return fmt.Errorf("cache entry %s is %d bytes", key, len(val))
			}
			vector = decodeVector(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

// Put stores vector under key.
func (c *BadgerCache) Put(key string, vector []float32) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeVector(vector))
	})
}

// Close closes the underlying store.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
