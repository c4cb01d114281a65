// Package sqlite persists vector indexes in SQLite files.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each index lives in its own file.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
//   - index_meta: one row holding format version, dimension, metric and model
//   - chunks: chunk text, offsets, JSON metadata and the embedding blob
//
// Embeddings are stored as little-endian float32 blobs, so a reload is
// bit-exact.
//
// # Thread Safety
//
// Save replaces the file contents in a single transaction. Concurrent
// readers see either the old or the new index, never a mix.
package sqlite
