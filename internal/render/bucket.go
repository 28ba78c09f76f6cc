// Package render composites stored map PNGs into bucket rasters and cuts
// those into the tile pyramid the web viewer pans across.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jason-green-io/papyri/internal/minecraft"
	"github.com/jason-green-io/papyri/internal/store"
)

const (
	// BucketSize is the side length in blocks of one composite bucket.
	BucketSize = 2048
	// TileSize is the side length in pixels of every emitted tile.
	TileSize = 256
	// BaseZoom is the finest pyramid level; one bucket covers 16x16 tiles
	// there, each backed by a 128px slice of the bucket raster.
	BaseZoom = 17
	// TilesPerBucket is the bucket's tile grid side at BaseZoom.
	TilesPerBucket = 16
)

// Bucket addresses one 2048-block-aligned composite region.
type Bucket struct {
	Dimension minecraft.Dimension
	// X, Z are the block coordinates of the bucket's top-left corner.
	X, Z int
}

// Filename renders the merged raster name. The viewer expects the z field
// negated.
func (b Bucket) Filename() string {
	return fmt.Sprintf("%s.%d.%d.png", b.Dimension, b.X, -b.Z)
}

// topLeft returns the block coordinates of a stored map's top-left corner.
// The +64 recentering puts every map on an integer map-grid boundary, so a
// footprint never straddles two buckets.
func topLeft(rec store.Stored) (int, int) {
	half := rec.SideBlocks() / 2
	return rec.CenterX - half + 64, rec.CenterZ - half + 64
}

// BucketFor returns the bucket a stored map composites into.
func BucketFor(rec store.Stored) Bucket {
	x, z := topLeft(rec)
	return Bucket{
		Dimension: rec.Dimension,
		X:         floorDiv(x, BucketSize) * BucketSize,
		Z:         floorDiv(z, BucketSize) * BucketSize,
	}
}

// Partition groups stored maps by their bucket.
func Partition(records map[int32]store.Stored) map[Bucket][]store.Stored {
	buckets := make(map[Bucket][]store.Stored)
	for _, rec := range records {
		b := BucketFor(rec)
		buckets[b] = append(buckets[b], rec)
	}
	return buckets
}

// Compositor paints stored maps into bucket rasters.
type Compositor struct {
	// MergedDir receives one PNG per bucket.
	MergedDir string
	// DisableZoomSort drops the scale ordering and paints by epoch alone.
	DisableZoomSort bool
}

// paintOrder sorts back-to-front: larger scales first so detailed maps end
// up on top, older epochs under newer ones. Id breaks exact ties so the
// result is stable across runs.
func (c *Compositor) paintOrder(recs []store.Stored) {
	sort.Slice(recs, func(i, j int) bool {
		if !c.DisableZoomSort && recs[i].Scale != recs[j].Scale {
			return recs[i].Scale > recs[j].Scale
		}
		if recs[i].Epoch != recs[j].Epoch {
			return recs[i].Epoch < recs[j].Epoch
		}
		return recs[i].ID < recs[j].ID
	})
}

// Composite paints every map of one bucket onto a transparent 2048x2048
// canvas and writes the merged raster. The canvas is returned for slicing.
func (c *Compositor) Composite(b Bucket, recs []store.Stored) (*image.NRGBA, error) {
	c.paintOrder(recs)

	canvas := image.NewNRGBA(image.Rect(0, 0, BucketSize, BucketSize))
	for _, rec := range recs {
		src, err := loadPNG(rec.Path)
		if err != nil {
			slog.Warn("skipping unreadable stored map", "file", rec.Path, "error", err)
			continue
		}
		x, z := topLeft(rec)
		ox, oz := floorMod(x, BucketSize), floorMod(z, BucketSize)
		side := rec.SideBlocks()
		draw.Draw(canvas, image.Rect(ox, oz, ox+side, oz+side), src, image.Point{}, draw.Over)
	}

	if err := os.MkdirAll(c.MergedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create merged dir: %w", err)
	}
	if err := writePNG(filepath.Join(c.MergedDir, b.Filename()), canvas); err != nil {
		return nil, fmt.Errorf("write bucket %s: %w", b.Filename(), err)
	}
	return canvas, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// floorDiv divides rounding toward negative infinity, so negative block
// coordinates land in the right bucket.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}
