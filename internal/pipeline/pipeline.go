// Package pipeline wires the stages together: read raw maps, decode and
// reconcile them against the PNG store, composite buckets, slice base tiles,
// reduce the pyramid, and emit markers. Stages are separated by barriers;
// within a stage, workers fan out over disjoint keys.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jason-green-io/papyri/internal/assets"
	"github.com/jason-green-io/papyri/internal/decode"
	"github.com/jason-green-io/papyri/internal/markers"
	"github.com/jason-green-io/papyri/internal/mbtiles"
	"github.com/jason-green-io/papyri/internal/minecraft"
	"github.com/jason-green-io/papyri/internal/render"
	"github.com/jason-green-io/papyri/internal/source"
	"github.com/jason-green-io/papyri/internal/store"
	"github.com/jason-green-io/papyri/internal/worker"
)

// Config carries everything the shell collected from flags.
type Config struct {
	// World is the path to the server's world directory.
	World string
	// WorldType selects the source dialect, "java" or "bds".
	WorldType string
	// Output is the root of the generated site.
	Output string
	// IncludeUnlimitedTracking renders maps flagged unlimitedTracking.
	IncludeUnlimitedTracking bool
	// DisableZoomSort paints buckets in epoch order only.
	DisableZoomSort bool
	// CopyTemplate extracts the bundled viewer assets into Output.
	CopyTemplate bool
	// MBTiles, when set, additionally packs the whole pyramid into one
	// tile database at this path.
	MBTiles string
	// Workers bounds stage fan-out; 0 means NumCPU.
	Workers int
	// ShowProgress draws per-stage progress bars on stderr.
	ShowProgress bool
}

// Run executes the whole batch. Per-map problems are logged and skipped;
// the returned error is reserved for fatal conditions (unreadable source,
// no maps at all, unwritable output).
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	src, err := source.New(cfg.WorldType, cfg.World)
	if err != nil {
		return err
	}
	raws, err := src.Maps(ctx)
	if err != nil {
		return fmt.Errorf("read %s world: %w", src.Name(), err)
	}
	if len(raws) == 0 {
		return fmt.Errorf("no maps found under %s", cfg.World)
	}

	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	st, err := store.New(filepath.Join(cfg.Output, "maps"))
	if err != nil {
		return err
	}
	prior, err := st.LoadAll()
	if err != nil {
		return err
	}

	decoded, stored := decodeStage(ctx, cfg, logger, st, prior, raws, workers)
	if len(stored) == 0 {
		return fmt.Errorf("no maps decoded from %s", cfg.World)
	}

	tilesDir := filepath.Join(cfg.Output, "tiles")
	if err := compositeStage(ctx, cfg, logger, stored, tilesDir, workers); err != nil {
		return err
	}
	if err := pyramidStage(ctx, cfg, logger, tilesDir, workers); err != nil {
		return err
	}

	if err := markers.WriteBanners(filepath.Join(cfg.Output, "banners.json"), decoded); err != nil {
		return err
	}
	if err := markers.WriteMaps(filepath.Join(cfg.Output, "maps.json"), decoded, stored); err != nil {
		return err
	}

	if cfg.MBTiles != "" {
		if err := packMBTiles(cfg.MBTiles, tilesDir, logger); err != nil {
			return err
		}
	}
	if cfg.CopyTemplate {
		if err := assets.CopyTemplate(cfg.Output); err != nil {
			return err
		}
		logger.Info("template copied", "output", cfg.Output)
	}

	logger.Info(fmt.Sprintf("Processed %d maps", len(stored)))
	return nil
}

// decodeStage decodes every raw record, reconciles it against the store,
// and returns the surviving decoded maps plus their current store records.
// Workers partition by map id, so the slots they write are disjoint.
func decodeStage(ctx context.Context, cfg Config, logger *slog.Logger, st *store.Store, prior map[int32]store.Stored, raws []source.RawMap, workers int) ([]*decode.Map, map[int32]store.Stored) {
	opts := decode.Options{IncludeUnlimitedTracking: cfg.IncludeUnlimitedTracking}
	now := time.Now()

	type slot struct {
		m   *decode.Map
		rec store.Stored
		ok  bool
	}
	slots := make([]slot, len(raws))

	tasks := make([]worker.Task, 0, len(raws))
	for i, raw := range raws {
		tasks = append(tasks, worker.Task{
			Label: fmt.Sprintf("map %d", raw.ID),
			Run: func(ctx context.Context) error {
				m, err := decode.Decode(raw, opts)
				if errors.Is(err, decode.ErrSkip) {
					logger.Warn("skipping map", "reason", err)
					return nil
				}
				if err != nil {
					logger.Warn("could not decode map", "error", err)
					return err
				}
				action, epoch := st.Reconcile(m, prior, now)
				rec, kept, err := st.Apply(m, action, epoch, prior)
				if err != nil {
					logger.Warn("could not store map", "error", err)
					return err
				}
				if kept {
					slots[i] = slot{m: m, rec: rec, ok: true}
				}
				return nil
			},
		})
	}
	runStage(ctx, logger, "decode", "maps", tasks, workers, cfg.ShowProgress)

	var decoded []*decode.Map
	stored := make(map[int32]store.Stored)
	for _, s := range slots {
		if !s.ok {
			continue
		}
		decoded = append(decoded, s.m)
		stored[s.rec.ID] = s.rec
	}
	return decoded, stored
}

// compositeStage paints each bucket and slices its base-zoom tiles in the
// same task, so a worker holds one bucket raster at a time.
func compositeStage(ctx context.Context, cfg Config, logger *slog.Logger, stored map[int32]store.Stored, tilesDir string, workers int) error {
	comp := &render.Compositor{
		MergedDir:       filepath.Join(cfg.Output, "merged-maps"),
		DisableZoomSort: cfg.DisableZoomSort,
	}
	slicer := &render.Slicer{TilesDir: tilesDir}

	buckets := render.Partition(stored)
	tasks := make([]worker.Task, 0, len(buckets))
	for b, recs := range buckets {
		tasks = append(tasks, worker.Task{
			Label: b.Filename(),
			Run: func(ctx context.Context) error {
				canvas, err := comp.Composite(b, recs)
				if err != nil {
					return err
				}
				return slicer.Slice(b, canvas)
			},
		})
	}
	results := runStage(ctx, logger, "composite", "buckets", tasks, workers, cfg.ShowProgress)
	return firstError(results)
}

// pyramidStage reduces each zoom level in turn; a level is complete before
// the next coarser one starts.
func pyramidStage(ctx context.Context, cfg Config, logger *slog.Logger, tilesDir string, workers int) error {
	pyr := &render.Pyramid{TilesDir: tilesDir}
	for _, dim := range minecraft.Dimensions {
		for zoom := render.BaseZoom - 1; zoom >= 0; zoom-- {
			groups, err := pyr.Groups(dim.String(), zoom+1)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				break
			}
			tasks := make([]worker.Task, 0, len(groups))
			for _, g := range groups {
				tasks = append(tasks, worker.Task{
					Label: fmt.Sprintf("%s/%d/%d/%d", g.Dimension, g.Zoom, g.X, g.Y),
					Run: func(ctx context.Context) error {
						return pyr.Reduce(g)
					},
				})
			}
			results := runStage(ctx, logger, fmt.Sprintf("reduce %s zoom %d", dim, zoom), "tiles", tasks, workers, cfg.ShowProgress)
			if err := firstError(results); err != nil {
				return err
			}
		}
	}
	return nil
}

// packMBTiles walks the finished pyramid and writes every dimension's tiles
// into one database; the writer records which dimensions it saw.
func packMBTiles(path, tilesDir string, logger *slog.Logger) error {
	pyr := &render.Pyramid{TilesDir: tilesDir}
	w, err := mbtiles.New(path, mbtiles.Metadata{
		Name:        "papyri",
		Format:      "png",
		Description: "Minecraft map items",
		Type:        "baselayer",
		Version:     "1.0",
		MinZoom:     0,
		MaxZoom:     render.BaseZoom,
	})
	if err != nil {
		return err
	}

	total := 0
	for _, dim := range minecraft.Dimensions {
		for zoom := 0; zoom <= render.BaseZoom; zoom++ {
			coords, err := pyr.Tiles(dim.String(), zoom)
			if err != nil {
				w.Close()
				return err
			}
			for _, c := range coords {
				data, err := os.ReadFile(render.TilePath(tilesDir, dim.String(), zoom, c[0], c[1]))
				if err != nil {
					w.Close()
					return fmt.Errorf("read tile for tile database: %w", err)
				}
				if err := w.WriteTile(dim.String(), zoom, c[0], c[1], data); err != nil {
					w.Close()
					return err
				}
				total++
			}
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("tile database written", "path", path, "tiles", total)
	return nil
}

// runStage runs one fan-out with its own progress tracker and summary line.
func runStage(ctx context.Context, logger *slog.Logger, name, units string, tasks []worker.Task, workers int, showProgress bool) []worker.Result {
	if len(tasks) == 0 {
		return nil
	}
	progress := worker.NewProgress(len(tasks), units, showProgress)
	pool := worker.New(worker.Config{Workers: workers, OnProgress: progress.Callback()})
	results := pool.Run(ctx, tasks)
	progress.Done()
	logger.Info(name+" stage: "+progress.Summary(), "tasks", len(tasks))
	return results
}

// firstError surfaces a stage's first hard failure. Decode-stage errors are
// per-map recoverable and never reach this; composite and reduce failures
// are filesystem problems worth aborting on.
func firstError(results []worker.Result) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Task.Label, r.Err)
		}
	}
	return nil
}
