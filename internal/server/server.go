// Package server previews a rendered site locally: the output directory is
// served as-is, and tiles can optionally come out of the packed tile
// database instead of the folder pyramid.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jason-green-io/papyri/internal/mbtiles"
)

// Config configures the preview server.
type Config struct {
	// SiteDir is the render output root.
	SiteDir string
	// MBTiles optionally names the packed tile database; tile requests for
	// dimensions recorded in it are answered from the database.
	MBTiles string
	// CacheControl is sent with every tile response.
	CacheControl string
}

// Server serves a rendered papyri site.
type Server struct {
	cfg    Config
	logger *slog.Logger
	reader *mbtiles.Reader
	served map[string]bool
	static http.Handler
}

// New opens the tile database when configured and builds the handler chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		static: http.FileServer(http.Dir(cfg.SiteDir)),
	}
	if cfg.MBTiles != "" {
		reader, err := mbtiles.OpenReader(cfg.MBTiles)
		if err != nil {
			return nil, fmt.Errorf("open tile database: %w", err)
		}
		dims, err := reader.Dimensions()
		if err != nil {
			reader.Close()
			return nil, err
		}
		s.reader = reader
		s.served = make(map[string]bool, len(dims))
		for _, dim := range dims {
			s.served[dim] = true
		}
	}
	return s, nil
}

// ServeHTTP answers tile requests from the database when it covers the
// dimension and falls back to the static site tree for everything else.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if dim, z, x, y, ok := parseTilePath(r.URL.Path); ok && s.served[dim] {
		s.serveTile(w, dim, z, x, y)
		return
	}
	s.static.ServeHTTP(w, r)
}

func (s *Server) serveTile(w http.ResponseWriter, dim string, z, x, y int) {
	data, err := s.reader.ReadTile(dim, z, x, y)
	if err != nil {
		http.Error(w, "Tile not found", http.StatusNotFound)
		return
	}
	if s.cfg.CacheControl != "" {
		w.Header().Set("Cache-Control", s.cfg.CacheControl)
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		s.log().Error("Failed to write response", "dim", dim, "error", err)
	}
}

// Close releases the tile database reader.
func (s *Server) Close() error {
	if s.reader == nil {
		return nil
	}
	return s.reader.Close()
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// parseTilePath splits a pyramid path like /tiles/overworld/17/-1/4.png.
func parseTilePath(requestPath string) (dim string, z, x, y int, ok bool) {
	rest, found := strings.CutPrefix(requestPath, "/tiles/")
	if !found || !strings.HasSuffix(rest, ".png") {
		return "", 0, 0, 0, false
	}
	parts := strings.Split(strings.TrimSuffix(rest, ".png"), "/")
	if len(parts) != 4 {
		return "", 0, 0, 0, false
	}
	z, errZ := strconv.Atoi(parts[1])
	x, errX := strconv.Atoi(parts[2])
	y, errY := strconv.Atoi(parts[3])
	if errZ != nil || errX != nil || errY != nil {
		return "", 0, 0, 0, false
	}
	return parts[0], z, x, y, true
}
