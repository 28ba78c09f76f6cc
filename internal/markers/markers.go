// Package markers emits the two JSON feature streams the viewer overlays on
// the tile pyramid: banner points and map-footprint polygons.
package markers

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jason-green-io/papyri/internal/decode"
	"github.com/jason-green-io/papyri/internal/minecraft"
	"github.com/jason-green-io/papyri/internal/store"
)

// bannerKey is the dedup identity for a banner across all maps that show it.
type bannerKey struct {
	X, Y, Z   int
	Name      string
	Color     string
	Dimension minecraft.Dimension
}

// WriteBanners collects every banner across the decoded maps, deduplicates,
// and writes the flat JSON array.
func WriteBanners(path string, maps []*decode.Map) error {
	seen := make(map[bannerKey]struct{})
	banners := make([]decode.Banner, 0)
	for _, m := range maps {
		for _, b := range m.Banners {
			key := bannerKey{b.X, b.Y, b.Z, b.Name, b.Color, b.Dimension}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			banners = append(banners, b)
		}
	}
	sort.Slice(banners, func(i, j int) bool {
		a, b := banners[i], banners[j]
		if a.Dimension != b.Dimension {
			return a.Dimension < b.Dimension
		}
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Name < b.Name
	})
	return writeJSON(path, banners)
}

// groupKey identifies one map footprint; several map items can share it.
type groupKey struct {
	Dimension minecraft.Dimension
	CenterX   int
	CenterZ   int
	Scale     int
}

// mapEntry is one map item inside a footprint's properties.
type mapEntry struct {
	ID       int32           `json:"id"`
	Scale    int             `json:"scale"`
	Filename string          `json:"filename"`
	Banners  []decode.Banner `json:"banners"`
	Frames   []decode.Frame  `json:"frames"`
}

// WriteMaps groups decoded maps by footprint and writes one closed polygon
// feature per group, listing the constituent maps in its properties.
// Stored supplies the on-disk filename for each map that survived the store.
func WriteMaps(path string, maps []*decode.Map, stored map[int32]store.Stored) error {
	groups := make(map[groupKey][]mapEntry)
	for _, m := range maps {
		rec, ok := stored[m.ID]
		if !ok {
			continue
		}
		key := groupKey{m.Dimension, m.CenterX, m.CenterZ, m.Scale}
		groups[key] = append(groups[key], mapEntry{
			ID:       m.ID,
			Scale:    m.Scale,
			Filename: rec.Filename(),
			Banners:  emptyIfNil(m.Banners),
			Frames:   emptyFramesIfNil(m.Frames),
		})
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Dimension != b.Dimension {
			return a.Dimension < b.Dimension
		}
		if a.CenterX != b.CenterX {
			return a.CenterX < b.CenterX
		}
		if a.CenterZ != b.CenterZ {
			return a.CenterZ < b.CenterZ
		}
		return a.Scale < b.Scale
	})

	fc := geojson.NewFeatureCollection()
	for _, key := range keys {
		entries := groups[key]
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

		f := geojson.NewFeature(footprint(key))
		f.Properties = geojson.Properties{
			"scale":     key.Scale,
			"dimension": key.Dimension,
			"maps":      entries,
		}
		fc.Append(f)
	}
	return writeJSON(path, fc)
}

// footprint builds the closed five-point ring of a map's block extent.
func footprint(key groupKey) orb.Polygon {
	half := float64(int(64) << key.Scale)
	width := 2 * half
	tlX := float64(key.CenterX) - half
	tlZ := float64(key.CenterZ) - half

	tl := orb.Point{tlX, tlZ}
	tr := orb.Point{tlX + width, tlZ}
	bl := orb.Point{tlX, tlZ + width}
	br := orb.Point{tlX + width, tlZ + width}
	return orb.Polygon{orb.Ring{tl, tr, bl, br, tl}}
}

func emptyIfNil(b []decode.Banner) []decode.Banner {
	if b == nil {
		return []decode.Banner{}
	}
	return b
}

func emptyFramesIfNil(f []decode.Frame) []decode.Frame {
	if f == nil {
		return []decode.Frame{}
	}
	return f
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
