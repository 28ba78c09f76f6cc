package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Bedrock reads map records out of the LevelDB store a Bedrock dedicated
// server keeps under the world's db/ directory. Map records live under keys
// of the form "map_<id>" with little-endian NBT values.
type Bedrock struct {
	Dir string
}

func (b *Bedrock) Name() string { return "bds" }

func (b *Bedrock) Maps(ctx context.Context) ([]RawMap, error) {
	dbDir := filepath.Join(b.Dir, "db")
	db, err := leveldb.OpenFile(dbDir, &opt.Options{
		Compression: opt.FlateCompression,
		BlockSize:   16 * opt.KiB,
		ReadOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb store %s: %w", dbDir, err)
	}
	defer db.Close()
	slog.Info("reading bedrock map data", "dir", dbDir)

	var maps []RawMap
	iter := db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !bytes.Contains(iter.Key(), []byte("map")) {
			continue
		}
		key := string(iter.Key())
		slog.Info("reading map record", "key", key)

		var tree map[string]any
		if err := nbt.UnmarshalEncoding(iter.Value(), &tree, nbt.LittleEndian); err != nil {
			slog.Warn("skipping unreadable map record", "key", key, "error", err)
			continue
		}
		id, ok := mapIDField(tree)
		if !ok {
			slog.Warn("skipping map record without mapId", "key", key)
			continue
		}
		normalizeDimension(tree)
		// LevelDB records carry no timestamp; the store picks the epoch.
		maps = append(maps, RawMap{ID: id, EpochHint: 0, Tree: tree})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate leveldb store: %w", err)
	}
	return maps, nil
}

func mapIDField(tree map[string]any) (int32, bool) {
	switch v := tree["mapId"].(type) {
	case int64:
		return int32(v), true
	case int32:
		return v, true
	}
	return 0, false
}

// normalizeDimension rewrites Bedrock's numeric dimension (0 overworld,
// 1 nether, 2 end) to the qualified name. Java's legacy codes assign the
// same numbers to different worlds, so the translation has to happen here,
// not in the decoder. Unknown codes stay numeric and are rejected there.
func normalizeDimension(tree map[string]any) {
	var code int
	switch v := tree["dimension"].(type) {
	case byte:
		code = int(v)
	case int16:
		code = int(v)
	case int32:
		code = int(v)
	case int64:
		code = int(v)
	default:
		return
	}
	switch code {
	case 0:
		tree["dimension"] = "minecraft:overworld"
	case 1:
		tree["dimension"] = "minecraft:the_nether"
	case 2:
		tree["dimension"] = "minecraft:the_end"
	}
}
