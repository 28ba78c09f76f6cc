// Package mbtiles packs a rendered tile pyramid into a single SQLite tile
// database. The layout borrows the MBTiles table names but diverges where
// the domain does: papyri tiles live on the viewer's block-aligned grid,
// whose rows are signed and unbounded, so coordinates are stored exactly as
// the folder pyramid names them (no TMS row flip), and a dimension column
// keys all three worlds into one file.
package mbtiles

import "fmt"

// Metadata contains the metadata rows papyri writes. The dimensions present
// in the database are recorded automatically when the writer closes.
type Metadata struct {
	Name        string // Human-readable tileset identifier
	Format      string // Tile data type; always png here
	Description string // Human-readable description
	Type        string // "baselayer" or "overlay"
	Version     string // Version string
	MinZoom     int    // Minimum zoom level
	MaxZoom     int    // Maximum zoom level
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	result["minzoom"] = fmt.Sprintf("%d", m.MinZoom)
	if m.MaxZoom > 0 {
		result["maxzoom"] = fmt.Sprintf("%d", m.MaxZoom)
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Type != "" {
		result["type"] = m.Type
	}
	if m.Version != "" {
		result["version"] = m.Version
	}

	return result
}
