package render

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Pyramid builds the coarser zoom levels by 2:1 reduction of the level
// below. Zoom z is complete before z-1 starts; within a level every parent
// tile is independent.
type Pyramid struct {
	TilesDir string
}

// Group is one parent tile and the up-to-four children that feed it.
// Children are indexed [quadrantY*2+quadrantX]; a missing child leaves its
// quadrant transparent.
type Group struct {
	Dimension string
	Zoom      int
	X, Y      int
	Children  [4]string
}

// Groups enumerates the tiles present at childZoom and clusters them under
// their parents at childZoom-1.
func (p *Pyramid) Groups(dim string, childZoom int) ([]Group, error) {
	coords, err := p.Tiles(dim, childZoom)
	if err != nil {
		return nil, err
	}
	byParent := make(map[[2]int]*Group)
	for _, c := range coords {
		key := [2]int{floorDiv(c[0], 2), floorDiv(c[1], 2)}
		g, ok := byParent[key]
		if !ok {
			g = &Group{Dimension: dim, Zoom: childZoom - 1, X: key[0], Y: key[1]}
			byParent[key] = g
		}
		quadrant := floorMod(c[1], 2)*2 + floorMod(c[0], 2)
		g.Children[quadrant] = TilePath(p.TilesDir, dim, childZoom, c[0], c[1])
	}
	groups := make([]Group, 0, len(byParent))
	for _, g := range byParent {
		groups = append(groups, *g)
	}
	return groups, nil
}

// Reduce composes one parent tile: children pasted into the quadrants of a
// 512px canvas, then a nearest-neighbor reduction to 256px. Nearest keeps
// the pixelated look; the game's own renderer never filters.
func (p *Pyramid) Reduce(g Group) error {
	canvas := image.NewNRGBA(image.Rect(0, 0, 2*TileSize, 2*TileSize))
	for q, path := range g.Children {
		if path == "" {
			continue
		}
		child, err := loadPNG(path)
		if err != nil {
			return fmt.Errorf("read child tile %s: %w", path, err)
		}
		qx, qy := q%2, q/2
		at := image.Rect(qx*TileSize, qy*TileSize, (qx+1)*TileSize, (qy+1)*TileSize)
		draw.Draw(canvas, at, child, image.Point{}, draw.Over)
	}

	parent := image.NewNRGBA(image.Rect(0, 0, TileSize, TileSize))
	xdraw.NearestNeighbor.Scale(parent, parent.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)

	path := TilePath(p.TilesDir, g.Dimension, g.Zoom, g.X, g.Y)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tile dir: %w", err)
	}
	if err := writePNG(path, parent); err != nil {
		return fmt.Errorf("write tile %s: %w", path, err)
	}
	return nil
}

// Tiles lists the (x, y) tile coordinates present at one zoom level.
func (p *Pyramid) Tiles(dim string, zoom int) ([][2]int, error) {
	zoomDir := filepath.Join(p.TilesDir, dim, strconv.Itoa(zoom))
	xDirs, err := os.ReadDir(zoomDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read zoom dir %s: %w", zoomDir, err)
	}
	var coords [][2]int
	for _, xDir := range xDirs {
		x, err := strconv.Atoi(xDir.Name())
		if err != nil || !xDir.IsDir() {
			continue
		}
		yFiles, err := os.ReadDir(filepath.Join(zoomDir, xDir.Name()))
		if err != nil {
			return nil, fmt.Errorf("read tile column: %w", err)
		}
		for _, yFile := range yFiles {
			name, ok := strings.CutSuffix(yFile.Name(), ".png")
			if !ok {
				continue
			}
			y, err := strconv.Atoi(name)
			if err != nil {
				continue
			}
			coords = append(coords, [2]int{x, y})
		}
	}
	return coords, nil
}

// TilePath returns the location of one tile in a pyramid tree.
func TilePath(root, dim string, zoom, x, y int) string {
	return filepath.Join(root, dim, strconv.Itoa(zoom), strconv.Itoa(x), strconv.Itoa(y)+".png")
}
