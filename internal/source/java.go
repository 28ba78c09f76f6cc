package source

import (
	"compress/gzip"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Java reads map_<id>.dat files from a Java edition world. The data
// directory is located by searching the world subtree for idcounts.dat, so
// the adapter works whether it is pointed at the server root, the world
// folder, or the data folder itself.
type Java struct {
	Dir string
}

var mapFileRE = regexp.MustCompile(`^map_(\d+)\.dat$`)

func (j *Java) Name() string { return "java" }

func (j *Java) Maps(ctx context.Context) ([]RawMap, error) {
	dataDir, err := j.findDataDir()
	if err != nil {
		return nil, err
	}
	slog.Info("reading java map data", "dir", dataDir)

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var maps []RawMap
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := mapFileRE.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 32)
		if err != nil {
			slog.Warn("skipping map file with bad id", "file", entry.Name(), "error", err)
			continue
		}
		path := filepath.Join(dataDir, entry.Name())
		slog.Info("reading map file", "file", path)

		tree, err := readMapDat(path)
		if err != nil {
			slog.Warn("skipping unreadable map file", "file", path, "error", err)
			continue
		}
		info, err := entry.Info()
		var epochHint int64
		if err == nil {
			epochHint = info.ModTime().Unix()
		}
		maps = append(maps, RawMap{ID: int32(id), EpochHint: epochHint, Tree: tree})
	}
	return maps, nil
}

// findDataDir walks the world subtree for the directory holding
// idcounts.dat, which always sits next to the map files.
func (j *Java) findDataDir() (string, error) {
	var found string
	err := filepath.WalkDir(j.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "idcounts.dat" {
			found = filepath.Dir(path)
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan world dir: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("no idcounts.dat under %s", j.Dir)
	}
	return found, nil
}

// readMapDat parses one gzipped big-endian NBT map file and returns the
// record's "data" compound.
func readMapDat(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	var root map[string]any
	if err := nbt.NewDecoderWithEncoding(gz, nbt.BigEndian).Decode(&root); err != nil {
		return nil, fmt.Errorf("nbt: %w", err)
	}
	data, ok := root["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("no data compound")
	}
	return data, nil
}
