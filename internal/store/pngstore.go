// Package store persists one rendered PNG per map. The filename carries the
// whole record — id, content hash, epoch, dimension, center, scale — so the
// directory itself is the database and partial writes from a killed run are
// shrugged off on the next load.
package store

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jason-green-io/papyri/internal/decode"
	"github.com/jason-green-io/papyri/internal/minecraft"
)

// Stored describes one persisted map PNG, decoded from its filename.
type Stored struct {
	ID        int32
	Hash      string
	Epoch     int64
	Dimension minecraft.Dimension
	CenterX   int
	CenterZ   int
	Scale     int
	// Path is the location of the file: the store directory joined with
	// the filename.
	Path string
}

// Filename renders the record tuple in its on-disk wire form. The encoding
// is durable state shared between runs; changing it is a migration.
func (s Stored) Filename() string {
	return fmt.Sprintf("%d.%s.%d.%s.%d.%d.%d.png",
		s.ID, s.Hash, s.Epoch, s.Dimension, s.CenterX, s.CenterZ, s.Scale)
}

// SideBlocks returns the side length of the stored map in blocks.
func (s Stored) SideBlocks() int {
	return decode.MapSize << s.Scale
}

func parseFilename(name string) (Stored, error) {
	base, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return Stored{}, fmt.Errorf("not a png: %s", name)
	}
	fields := strings.Split(base, ".")
	if len(fields) != 7 {
		return Stored{}, fmt.Errorf("want 7 fields, got %d: %s", len(fields), name)
	}
	id, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil || id < 0 {
		return Stored{}, fmt.Errorf("bad id %q: %s", fields[0], name)
	}
	epoch, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Stored{}, fmt.Errorf("bad epoch %q: %s", fields[2], name)
	}
	dim, err := minecraft.ParseDimension(fields[3])
	if err != nil {
		return Stored{}, fmt.Errorf("%w: %s", err, name)
	}
	x, err := strconv.Atoi(fields[4])
	if err != nil {
		return Stored{}, fmt.Errorf("bad x %q: %s", fields[4], name)
	}
	z, err := strconv.Atoi(fields[5])
	if err != nil {
		return Stored{}, fmt.Errorf("bad z %q: %s", fields[5], name)
	}
	scale, err := strconv.Atoi(fields[6])
	if err != nil || scale < 0 || scale > 4 {
		return Stored{}, fmt.Errorf("bad scale %q: %s", fields[6], name)
	}
	return Stored{
		ID:        int32(id),
		Hash:      fields[1],
		Epoch:     epoch,
		Dimension: dim,
		CenterX:   x,
		CenterZ:   z,
		Scale:     scale,
	}, nil
}

// Store manages the maps/ directory.
type Store struct {
	Dir string
}

// New opens (creating if needed) the store directory.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create map store: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// LoadAll enumerates the store. Unparseable filenames are skipped with a
// warning; duplicate ids (orphans from interrupted runs) resolve to the
// record with the highest epoch.
func (s *Store) LoadAll() (map[int32]Stored, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read map store: %w", err)
	}
	stored := make(map[int32]Stored, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rec, err := parseFilename(entry.Name())
		if err != nil {
			slog.Warn("skipping stale file in map store", "file", entry.Name(), "error", err)
			continue
		}
		rec.Path = filepath.Join(s.Dir, entry.Name())
		if prev, ok := stored[rec.ID]; ok && prev.Epoch >= rec.Epoch {
			continue
		}
		stored[rec.ID] = rec
	}
	return stored, nil
}

// Action is the reconcile decision for one decoded map.
type Action int

const (
	// Drop means the map is empty and is not persisted.
	Drop Action = iota
	// Keep means the stored record already matches; nothing is touched.
	Keep
	// Refresh means content is unchanged but the epoch moved forward; the
	// file is renamed to carry the new epoch.
	Refresh
	// Write means the map is new or its content changed; a PNG is written.
	Write
)

// Reconcile decides what to do with a decoded map given the prior run's
// record, and the epoch the new record will carry.
func (s *Store) Reconcile(m *decode.Map, prior map[int32]Stored, now time.Time) (Action, int64) {
	if m.Hash == decode.EmptyMapHash {
		return Drop, 0
	}
	old, ok := prior[m.ID]
	if !ok {
		return Write, m.EpochHint
	}
	if old.Hash != m.Hash {
		if m.EpochHint == 0 {
			return Write, now.Unix()
		}
		return Write, m.EpochHint
	}
	if m.EpochHint > old.Epoch {
		return Refresh, m.EpochHint
	}
	return Keep, old.Epoch
}

// Apply carries out a reconcile decision and returns the current record for
// the map (zero Stored and false for Drop).
func (s *Store) Apply(m *decode.Map, action Action, epoch int64, prior map[int32]Stored) (Stored, bool, error) {
	old, hadOld := prior[m.ID]
	switch action {
	case Drop:
		return Stored{}, false, nil
	case Keep:
		return old, true, nil
	case Refresh:
		rec := old
		rec.Epoch = epoch
		rec.Path = filepath.Join(s.Dir, rec.Filename())
		if err := os.Rename(old.Path, rec.Path); err != nil {
			return Stored{}, false, fmt.Errorf("refresh map %d: %w", m.ID, err)
		}
		return rec, true, nil
	case Write:
		rec := Stored{
			ID:        m.ID,
			Hash:      m.Hash,
			Epoch:     epoch,
			Dimension: m.Dimension,
			CenterX:   m.CenterX,
			CenterZ:   m.CenterZ,
			Scale:     m.Scale,
		}
		rec.Path = filepath.Join(s.Dir, rec.Filename())
		if err := s.writePNG(m, rec.Path); err != nil {
			return Stored{}, false, err
		}
		if hadOld && old.Path != rec.Path {
			if err := os.Remove(old.Path); err != nil {
				slog.Warn("could not remove prior map file", "file", old.Path, "error", err)
			}
		}
		return rec, true, nil
	}
	return Stored{}, false, fmt.Errorf("unknown action %d", action)
}

// writePNG encodes the upscaled raster next to its final name and renames it
// into place, so readers never observe a half-written file.
func (s *Store) writePNG(m *decode.Map, path string) error {
	tmp, err := os.CreateTemp(s.Dir, fmt.Sprintf(".%d-*.tmp", m.ID))
	if err != nil {
		return fmt.Errorf("write map %d: %w", m.ID, err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, m.Image); err != nil {
		tmp.Close()
		return fmt.Errorf("encode map %d: %w", m.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write map %d: %w", m.ID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write map %d: %w", m.ID, err)
	}
	return nil
}
