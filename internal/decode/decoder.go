// Package decode turns raw map records into rendered rasters plus their
// sidecar metadata.
package decode

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/gift"
	"github.com/jason-green-io/papyri/internal/minecraft"
	"github.com/jason-green-io/papyri/internal/source"
)

// MapSize is the side length in pixels of every map raster the game stores.
const MapSize = 128

// EmptyMapHash is the digest of a fully transparent raster. Maps that hash
// to it were crafted but never held, and are dropped.
const EmptyMapHash = "fcd6bcb56c1689fcef28b57c22475bad"

// ErrSkip marks records that are well-formed but intentionally not rendered
// (unknown dimension, unlimited tracking without opt-in). Callers test with
// errors.Is and log at warn level.
var ErrSkip = errors.New("map skipped")

// Banner is a named point marker embedded in a map record.
type Banner struct {
	X         int                 `json:"X"`
	Y         int                 `json:"Y"`
	Z         int                 `json:"Z"`
	Name      string              `json:"name"`
	Color     string              `json:"color"`
	Dimension minecraft.Dimension `json:"dimension"`
}

// Frame is an item-frame position marker embedded in a map record.
type Frame struct {
	X        int `json:"X"`
	Y        int `json:"Y"`
	Z        int `json:"Z"`
	Rotation int `json:"rotation"`
}

// Map is one fully decoded map: the upscaled raster plus everything the
// later stages need to place and identify it.
type Map struct {
	ID        int32
	Scale     int
	CenterX   int
	CenterZ   int
	Dimension minecraft.Dimension
	// Hash is the md5 of the raw 128x128 RGBA bytes, before upscaling.
	Hash string
	// EpochHint carries the source's timestamp, 0 when it has none.
	EpochHint int64
	// Image is the raster upscaled to its block footprint, 128*2^Scale square.
	Image   *image.NRGBA
	Banners []Banner
	Frames  []Frame
}

// SideBlocks returns the side length of the map's footprint in blocks.
func (m *Map) SideBlocks() int {
	return MapSize << m.Scale
}

// Options controls which records the decoder accepts.
type Options struct {
	// IncludeUnlimitedTracking renders maps flagged with unlimitedTracking,
	// which are otherwise skipped.
	IncludeUnlimitedTracking bool
}

// Decode converts one raw record. Missing required fields return a plain
// error; records that are deliberately not rendered return an error wrapping
// ErrSkip.
func Decode(raw source.RawMap, opts Options) (*Map, error) {
	scale, ok := intField(raw.Tree, "scale")
	if !ok {
		return nil, fmt.Errorf("map %d: missing scale", raw.ID)
	}
	if scale < 0 || scale > 4 {
		return nil, fmt.Errorf("map %d: scale %d out of range", raw.ID, scale)
	}
	xCenter, ok := intField(raw.Tree, "xCenter")
	if !ok {
		return nil, fmt.Errorf("map %d: missing xCenter", raw.ID)
	}
	zCenter, ok := intField(raw.Tree, "zCenter")
	if !ok {
		return nil, fmt.Errorf("map %d: missing zCenter", raw.ID)
	}
	dim, err := dimensionField(raw.Tree)
	if err != nil {
		if errors.Is(err, errNoDimension) {
			return nil, fmt.Errorf("map %d: missing dimension", raw.ID)
		}
		return nil, fmt.Errorf("map %d: %w: %w", raw.ID, ErrSkip, err)
	}

	if unlimited, _ := boolField(raw.Tree, "unlimitedTracking"); unlimited && !opts.IncludeUnlimitedTracking {
		return nil, fmt.Errorf("map %d: %w: unlimited tracking", raw.ID, ErrSkip)
	}

	colors, ok := raw.Tree["colors"].([]byte)
	if !ok {
		return nil, fmt.Errorf("map %d: missing colors", raw.ID)
	}
	img, err := buildRaster(colors)
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", raw.ID, err)
	}
	sum := md5.Sum(img.Pix)

	m := &Map{
		ID:        raw.ID,
		Scale:     scale,
		CenterX:   xCenter,
		CenterZ:   zCenter,
		Dimension: dim,
		Hash:      hex.EncodeToString(sum[:]),
		EpochHint: raw.EpochHint,
		Image:     upscale(img, scale),
		Banners:   bannersField(raw.Tree, dim, raw.ID),
		Frames:    framesField(raw.Tree),
	}
	return m, nil
}

// buildRaster constructs the 128x128 RGBA raster from either dialect of the
// colors payload: palette indices (one byte per pixel) or pre-mixed RGBA
// quadruplets.
func buildRaster(colors []byte) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, MapSize, MapSize))
	switch len(colors) {
	case MapSize * MapSize:
		for i, b := range colors {
			c := minecraft.MapColor(b)
			p := i * 4
			img.Pix[p+0] = c.R
			img.Pix[p+1] = c.G
			img.Pix[p+2] = c.B
			img.Pix[p+3] = c.A
		}
	case MapSize * MapSize * 4:
		copy(img.Pix, colors)
	default:
		return nil, fmt.Errorf("colors length %d (want %d or %d)", len(colors), MapSize*MapSize, MapSize*MapSize*4)
	}
	return img, nil
}

// upscale grows the raster to its block footprint with a nearest-neighbor
// resize, keeping the pixelated look.
func upscale(img *image.NRGBA, scale int) *image.NRGBA {
	if scale == 0 {
		return img
	}
	side := MapSize << scale
	g := gift.New(gift.Resize(side, side, gift.NearestNeighborResampling))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

func bannersField(tree map[string]any, dim minecraft.Dimension, id int32) []Banner {
	list, ok := listField(tree, "banners")
	if !ok {
		return nil
	}
	banners := make([]Banner, 0, len(list))
	for _, entry := range list {
		x, y, z, ok := posField(entry)
		if !ok {
			continue
		}
		color, _ := entry["Color"].(string)
		if !minecraft.ValidBannerColor(color) {
			slog.Warn("unknown banner color, using white", "map", id, "color", color)
			color = "white"
		}
		banners = append(banners, Banner{
			X:         x,
			Y:         y,
			Z:         z,
			Name:      bannerName(entry),
			Color:     color,
			Dimension: dim,
		})
	}
	return banners
}

// bannerName pulls the plain text out of the JSON text component in the
// banner's Name field. Anything unparseable renders as an unnamed banner.
func bannerName(entry map[string]any) string {
	raw, ok := entry["Name"].(string)
	if !ok {
		return ""
	}
	var component struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &component); err != nil {
		return ""
	}
	return component.Text
}

func framesField(tree map[string]any) []Frame {
	list, ok := listField(tree, "frames")
	if !ok {
		return nil
	}
	frames := make([]Frame, 0, len(list))
	for _, entry := range list {
		x, y, z, ok := posField(entry)
		if !ok {
			continue
		}
		rotation, _ := intField(entry, "Rotation")
		frames = append(frames, Frame{X: x, Y: y, Z: z, Rotation: rotation})
	}
	return frames
}

func posField(entry map[string]any) (x, y, z int, ok bool) {
	pos, isCompound := entry["Pos"].(map[string]any)
	if !isCompound {
		return 0, 0, 0, false
	}
	x, xok := intField(pos, "X")
	y, yok := intField(pos, "Y")
	z, zok := intField(pos, "Z")
	return x, y, z, xok && yok && zok
}
