package decode

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-green-io/papyri/internal/minecraft"
	"github.com/jason-green-io/papyri/internal/source"
)

// grassIndex is the grass base color at full brightness; easy to assert on.
const grassIndex = 6

func indexedColors(index byte) []byte {
	colors := make([]byte, MapSize*MapSize)
	for i := range colors {
		colors[i] = index
	}
	return colors
}

func rawMap(id int32, overrides map[string]any) source.RawMap {
	tree := map[string]any{
		"scale":     byte(0),
		"xCenter":   int32(0),
		"zCenter":   int32(0),
		"dimension": byte(0),
		"colors":    indexedColors(grassIndex),
	}
	for k, v := range overrides {
		if v == nil {
			delete(tree, k)
			continue
		}
		tree[k] = v
	}
	return source.RawMap{ID: id, EpochHint: 1234, Tree: tree}
}

func TestDecode_Basic(t *testing.T) {
	m, err := Decode(rawMap(7, nil), Options{})
	require.NoError(t, err)

	assert.Equal(t, int32(7), m.ID)
	assert.Equal(t, 0, m.Scale)
	assert.Equal(t, minecraft.Overworld, m.Dimension)
	assert.Equal(t, int64(1234), m.EpochHint)
	assert.Equal(t, 128, m.SideBlocks())
	assert.NotEqual(t, EmptyMapHash, m.Hash)

	bounds := m.Image.Bounds()
	assert.Equal(t, 128, bounds.Dx())
	assert.Equal(t, color.NRGBA{R: 127, G: 178, B: 56, A: 255}, m.Image.NRGBAAt(0, 0))
}

func TestDecode_MissingRequiredFields(t *testing.T) {
	for _, field := range []string{"scale", "xCenter", "zCenter", "dimension", "colors"} {
		_, err := Decode(rawMap(1, map[string]any{field: nil}), Options{})
		require.Error(t, err, "missing %s must fail", field)
		assert.NotErrorIs(t, err, ErrSkip, "missing %s is a decode error, not a skip", field)
	}
}

func TestDecode_DimensionForms(t *testing.T) {
	tests := []struct {
		value any
		want  minecraft.Dimension
	}{
		{byte(0), minecraft.Overworld},
		{int32(-1), minecraft.Nether},
		{int32(1), minecraft.End},
		{"minecraft:overworld", minecraft.Overworld},
		{"minecraft:the_nether", minecraft.Nether},
		{"minecraft:the_end", minecraft.End},
	}
	for _, tt := range tests {
		m, err := Decode(rawMap(1, map[string]any{"dimension": tt.value}), Options{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, m.Dimension)
	}
}

func TestDecode_UnknownDimensionSkips(t *testing.T) {
	_, err := Decode(rawMap(1, map[string]any{"dimension": "minecraft:the_moon"}), Options{})
	assert.ErrorIs(t, err, ErrSkip)

	_, err = Decode(rawMap(1, map[string]any{"dimension": int32(9)}), Options{})
	assert.ErrorIs(t, err, ErrSkip)
}

func TestDecode_UnlimitedTracking(t *testing.T) {
	raw := rawMap(1, map[string]any{"unlimitedTracking": byte(1)})

	_, err := Decode(raw, Options{})
	assert.ErrorIs(t, err, ErrSkip)

	m, err := Decode(raw, Options{IncludeUnlimitedTracking: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.ID)
}

func TestDecode_EmptyMapSentinel(t *testing.T) {
	m, err := Decode(rawMap(1, map[string]any{"colors": indexedColors(0)}), Options{})
	require.NoError(t, err)
	assert.Equal(t, EmptyMapHash, m.Hash)
}

func TestDecode_PreMixedColors(t *testing.T) {
	colors := make([]byte, MapSize*MapSize*4)
	for i := 0; i < len(colors); i += 4 {
		colors[i+0] = 10
		colors[i+1] = 20
		colors[i+2] = 30
		colors[i+3] = 255
	}
	m, err := Decode(rawMap(1, map[string]any{"colors": colors}), Options{})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, m.Image.NRGBAAt(64, 64))
}

func TestDecode_BadColorsLength(t *testing.T) {
	_, err := Decode(rawMap(1, map[string]any{"colors": make([]byte, 100)}), Options{})
	assert.Error(t, err)
}

func TestDecode_UpscaleByScale(t *testing.T) {
	m, err := Decode(rawMap(1, map[string]any{"scale": byte(2)}), Options{})
	require.NoError(t, err)

	assert.Equal(t, 512, m.SideBlocks())
	assert.Equal(t, 512, m.Image.Bounds().Dx())
	// Nearest-neighbor upscale keeps flat regions flat.
	assert.Equal(t, color.NRGBA{R: 127, G: 178, B: 56, A: 255}, m.Image.NRGBAAt(511, 511))
}

func TestDecode_HashIgnoresScale(t *testing.T) {
	small, err := Decode(rawMap(1, map[string]any{"scale": byte(0)}), Options{})
	require.NoError(t, err)
	large, err := Decode(rawMap(2, map[string]any{"scale": byte(4)}), Options{})
	require.NoError(t, err)

	// The hash covers the raw 128x128 raster, so identical pixel data at
	// different scales hashes the same.
	assert.Equal(t, small.Hash, large.Hash)
}

func TestDecode_ScaleOutOfRange(t *testing.T) {
	_, err := Decode(rawMap(1, map[string]any{"scale": byte(5)}), Options{})
	assert.Error(t, err)
}

func TestDecode_Banners(t *testing.T) {
	banners := []any{
		map[string]any{
			"Color": "red",
			"Name":  `{"text":"Home"}`,
			"Pos":   map[string]any{"X": int32(10), "Y": int32(64), "Z": int32(-20)},
		},
		map[string]any{
			"Color": "chartreuse",
			"Pos":   map[string]any{"X": int32(0), "Y": int32(0), "Z": int32(0)},
		},
		map[string]any{
			"Color": "blue",
			"Name":  `not json`,
			"Pos":   map[string]any{"X": int32(1), "Y": int32(2), "Z": int32(3)},
		},
	}
	m, err := Decode(rawMap(1, map[string]any{"banners": banners, "dimension": int32(-1)}), Options{})
	require.NoError(t, err)
	require.Len(t, m.Banners, 3)

	assert.Equal(t, Banner{X: 10, Y: 64, Z: -20, Name: "Home", Color: "red", Dimension: minecraft.Nether}, m.Banners[0])
	// Unknown colors fall back to white, absent names to "".
	assert.Equal(t, "white", m.Banners[1].Color)
	assert.Equal(t, "", m.Banners[1].Name)
	// Unparseable name components render unnamed.
	assert.Equal(t, "", m.Banners[2].Name)
}

func TestDecode_Frames(t *testing.T) {
	frames := []any{
		map[string]any{
			"Rotation": int32(3),
			"Pos":      map[string]any{"X": int32(5), "Y": int32(70), "Z": int32(6)},
		},
	}
	m, err := Decode(rawMap(1, map[string]any{"frames": frames}), Options{})
	require.NoError(t, err)
	require.Len(t, m.Frames, 1)
	assert.Equal(t, Frame{X: 5, Y: 70, Z: 6, Rotation: 3}, m.Frames[0])
}

func TestDecode_SkipIsDetectable(t *testing.T) {
	_, err := Decode(rawMap(1, map[string]any{"unlimitedTracking": byte(1)}), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSkip))
}
