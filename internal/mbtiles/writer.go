package mbtiles

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultBatchSize is the number of tiles to buffer before flushing to the database.
	DefaultBatchSize = 100
)

// TileEntry represents a single tile to be written. PNG data is already
// deflate-compressed, so it is stored as-is.
type TileEntry struct {
	Dimension string
	Data      []byte
	Z         int
	X         int
	Y         int
}

// Writer writes a rendered pyramid into a tile database. All dimensions
// share one file; each write carries its dimension.
type Writer struct {
	db         *sql.DB
	path       string
	batch      []TileEntry
	dimensions map[string]struct{}
	metadata   Metadata
	batchSize  int
	mu         sync.Mutex
}

// New creates a new tile database writer.
// The database is created if it doesn't exist, and the schema is initialized.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:         db,
		path:       path,
		batch:      make([]TileEntry, 0, DefaultBatchSize),
		dimensions: make(map[string]struct{}),
		batchSize:  DefaultBatchSize,
		metadata:   metadata,
	}, nil
}

// createSchema creates the tile database schema. tile_column and tile_row
// are the block-grid tile coordinates verbatim; both can be negative.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS tiles (
			dimension TEXT NOT NULL,
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_data BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (dimension, zoom_level, tile_column, tile_row);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// insertMetadata inserts metadata into the database.
func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// WriteTile adds a tile to the batch. When the batch is full, it is
// automatically flushed.
func (w *Writer) WriteTile(dimension string, z, x, y int, pngData []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, TileEntry{
		Dimension: dimension,
		Z:         z,
		X:         x,
		Y:         y,
		Data:      pngData,
	})
	w.dimensions[dimension] = struct{}{}

	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}

	return nil
}

// Flush writes any buffered tiles to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked writes buffered tiles to the database. Must be called with lock held.
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (dimension, zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tile := range w.batch {
		if _, err := stmt.Exec(tile.Dimension, tile.Z, tile.X, tile.Y, tile.Data); err != nil {
			return fmt.Errorf("failed to insert tile %s/%d/%d/%d: %w", tile.Dimension, tile.Z, tile.X, tile.Y, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes remaining tiles, records which dimensions were written, and
// closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.writeDimensions(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// writeDimensions records the set of dimensions present as a metadata row,
// so readers can route without scanning the tiles table.
func (w *Writer) writeDimensions() error {
	w.mu.Lock()
	dims := make([]string, 0, len(w.dimensions))
	for dim := range w.dimensions {
		dims = append(dims, dim)
	}
	w.mu.Unlock()
	sort.Strings(dims)

	if _, err := w.db.Exec("DELETE FROM metadata WHERE name = 'dimensions'"); err != nil {
		return fmt.Errorf("failed to clear dimensions metadata: %w", err)
	}
	if _, err := w.db.Exec("INSERT INTO metadata (name, value) VALUES ('dimensions', ?)", strings.Join(dims, ",")); err != nil {
		return fmt.Errorf("failed to record dimensions: %w", err)
	}
	return nil
}
