package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// FormatVersion is written to every saved index. Load rejects files
// written by a newer version.
const FormatVersion = 1

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore saves and loads vector index snapshots, one SQLite file per index.
type IndexStore struct{}

// NewIndexStore creates a new SQLite index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Save writes snap to path, replacing any previous contents in one transaction.
func (s *IndexStore) Save(ctx context.Context, path string, snap driven.IndexSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !snap.Metric.IsValid() {
		return &domain.ConfigurationError{Field: "index.metric", Reason: fmt.Sprintf("unknown metric %q", snap.Metric)}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return storeError("creating index directory", err)
		}
	}

	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return storeError("clearing chunks", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, format_version, dimension, metric, model, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			format_version = excluded.format_version,
			dimension = excluded.dimension,
			metric = excluded.metric,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, FormatVersion, snap.Dimension, string(snap.Metric), snap.Model)
	if err != nil {
		return storeError("saving index metadata", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (position, id, document_id, chunk_index, content, char_start, char_end, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storeError("preparing chunk insert", err)
	}
	defer stmt.Close()

	for i, item := range snap.Items {
		if len(item.Vector) != snap.Dimension {
			return &domain.DimensionMismatchError{Expected: snap.Dimension, Got: len(item.Vector), Position: i}
		}

		meta, err := json.Marshal(item.Chunk.Metadata)
		if err != nil {
			return storeError("marshaling chunk metadata", err)
		}
		if string(meta) == jsonNull {
			meta = []byte("{}")
		}

		c := item.Chunk
		if _, err := stmt.ExecContext(ctx,
			i, c.ID, c.DocumentID, c.Index, c.Content, c.CharStart, c.CharEnd,
			string(meta), float32SliceToBytes(item.Vector),
		); err != nil {
			return storeError(fmt.Sprintf("saving chunk %s", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("committing index", err)
	}

	logger.Debug("sqlite: saved %d vectors to %s", len(snap.Items), path)
	return nil
}

// Load reads the snapshot stored at path.
// Returns domain.ErrNotFound if the file does not exist or holds no index.
func (s *IndexStore) Load(ctx context.Context, path string) (driven.IndexSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return driven.IndexSnapshot{}, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return driven.IndexSnapshot{}, fmt.Errorf("index %s: %w", path, domain.ErrNotFound)
		}
		return driven.IndexSnapshot{}, storeError("checking index file", err)
	}

	db, err := open(path)
	if err != nil {
		return driven.IndexSnapshot{}, err
	}
	defer db.Close()

	var (
		snap    driven.IndexSnapshot
		version int
		metric  string
	)
	row := db.QueryRowContext(ctx, "SELECT format_version, dimension, metric, model FROM index_meta WHERE id = 1")
	if err := row.Scan(&version, &snap.Dimension, &metric, &snap.Model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return driven.IndexSnapshot{}, fmt.Errorf("index %s: %w", path, domain.ErrNotFound)
		}
		return driven.IndexSnapshot{}, storeError("reading index metadata", err)
	}
	if version > FormatVersion {
		return driven.IndexSnapshot{}, storeError("reading index metadata",
			fmt.Errorf("format version %d is newer than supported version %d", version, FormatVersion))
	}

	snap.Metric = domain.Metric(metric)
	if !snap.Metric.IsValid() {
		return driven.IndexSnapshot{}, storeError("reading index metadata", fmt.Errorf("unknown metric %q", metric))
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, char_start, char_end, metadata, embedding
		FROM chunks ORDER BY position
	`)
	if err != nil {
		return driven.IndexSnapshot{}, storeError("querying chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return driven.IndexSnapshot{}, err
		}
		if len(item.Vector) != snap.Dimension {
			return driven.IndexSnapshot{}, storeError("reading chunks",
				fmt.Errorf("chunk %s has %d dimensions, index has %d", item.Chunk.ID, len(item.Vector), snap.Dimension))
		}
		snap.Items = append(snap.Items, item)
	}
	if err := rows.Err(); err != nil {
		return driven.IndexSnapshot{}, storeError("reading chunks", err)
	}

	logger.Debug("sqlite: loaded %d vectors from %s", len(snap.Items), path)
	return snap, nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// open opens the database at path and applies pending migrations.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, storeError("opening database", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, storeError("running migrations", err)
	}

	return db, nil
}

func migrate(db *sql.DB, fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func scanItem(rows *sql.Rows) (driven.IndexedVector, error) {
	var (
		c         domain.Chunk
		meta      string
		embedding []byte
	)
	if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.CharStart, &c.CharEnd, &meta, &embedding); err != nil {
		return driven.IndexedVector{}, storeError("scanning chunk", err)
	}
	if len(embedding)%4 != 0 {
		return driven.IndexedVector{}, storeError("scanning chunk",
			fmt.Errorf("chunk %s embedding is %d bytes, not a multiple of 4", c.ID, len(embedding)))
	}
	if meta != "" && meta != jsonNull {
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			return driven.IndexedVector{}, storeError(fmt.Sprintf("decoding metadata of chunk %s", c.ID), err)
		}
	}
	return driven.IndexedVector{Vector: bytesToFloat32Slice(embedding), Chunk: c}, nil
}

// storeError tags err as a persistence failure.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexStore, op, err)
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
