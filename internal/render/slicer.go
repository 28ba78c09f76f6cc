package render

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/gift"
)

// sliceSize is the bucket raster region behind one base-zoom tile.
const sliceSize = BucketSize / TilesPerBucket

// Slicer cuts bucket rasters into base-zoom tiles.
type Slicer struct {
	// TilesDir is the root of the {dim}/{zoom}/{x}/{y}.png tree.
	TilesDir string
}

// Slice writes the 16x16 grid of zoom-17 tiles for one bucket raster.
// Fully transparent regions produce no file; the pyramid treats a missing
// tile as transparent.
func (s *Slicer) Slice(b Bucket, canvas *image.NRGBA) error {
	tileXBase := b.X / BucketSize * TilesPerBucket
	tileYBase := -b.Z / BucketSize * TilesPerBucket

	resize := gift.New(gift.Resize(TileSize, TileSize, gift.NearestNeighborResampling))
	for ny := 0; ny < TilesPerBucket; ny++ {
		for nx := 0; nx < TilesPerBucket; nx++ {
			region := image.Rect(nx*sliceSize, ny*sliceSize, (nx+1)*sliceSize, (ny+1)*sliceSize)
			if transparent(canvas, region) {
				continue
			}
			sub := canvas.SubImage(region)
			tile := image.NewNRGBA(image.Rect(0, 0, TileSize, TileSize))
			resize.Draw(tile, sub)

			path := TilePath(s.TilesDir, b.Dimension.String(), BaseZoom, tileXBase+nx, tileYBase+ny)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create tile dir: %w", err)
			}
			if err := writePNG(path, tile); err != nil {
				return fmt.Errorf("write tile %s: %w", path, err)
			}
		}
	}
	return nil
}

// transparent reports whether every pixel of the region has zero alpha.
func transparent(img *image.NRGBA, region image.Rectangle) bool {
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := img.Pix[y*img.Stride+region.Min.X*4 : y*img.Stride+region.Max.X*4]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0 {
				return false
			}
		}
	}
	return true
}
