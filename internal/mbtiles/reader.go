package mbtiles

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Reader reads tiles back out of a tile database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens a tile database for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify schema exists
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain tiles table")
	}

	return &Reader{db: db, path: path}, nil
}

// ReadTile returns the PNG data of one tile. Coordinates are the block-grid
// tile coordinates exactly as the folder pyramid names them.
func (r *Reader) ReadTile(dimension string, z, x, y int) ([]byte, error) {
	var data []byte
	err := r.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE dimension=? AND zoom_level=? AND tile_column=? AND tile_row=?",
		dimension, z, x, y,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tile not found: %s/%d/%d/%d", dimension, z, x, y)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tile: %w", err)
	}
	return data, nil
}

// Dimensions returns the dimensions recorded at write time.
func (r *Reader) Dimensions() ([]string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM metadata WHERE name = 'dimensions'").Scan(&value)
	if err == sql.ErrNoRows || (err == nil && value == "") {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dimensions: %w", err)
	}
	return strings.Split(value, ","), nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	meta := Metadata{
		Name:        metaMap["name"],
		Format:      metaMap["format"],
		Description: metaMap["description"],
		Type:        metaMap["type"],
		Version:     metaMap["version"],
	}
	if v, ok := metaMap["minzoom"]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.MinZoom = i
		}
	}
	if v, ok := metaMap["maxzoom"]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.MaxZoom = i
		}
	}

	return meta, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
