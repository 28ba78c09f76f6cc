package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-green-io/papyri/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a world's maps into web tiles",
	Long:  `Render reads every map item from a world and writes the tile pyramid, merged bucket rasters, and marker JSON under the output directory.`,
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("world", "", "Path to the Minecraft world directory (required)")
	renderCmd.Flags().String("type", "java", "World type: java or bds")
	renderCmd.Flags().String("output", "", "Output directory for the generated site (required)")
	renderCmd.Flags().Bool("include-unlimited-tracking", false, "Also render maps flagged with unlimitedTracking")
	renderCmd.Flags().Bool("disable-zoom-sort", false, "Composite by age only, ignoring map scale")
	renderCmd.Flags().Bool("copy-template", false, "Copy the bundled web viewer into the output directory")
	renderCmd.Flags().String("mbtiles", "", "Additionally pack all tiles into a tile database at this path")
	renderCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	renderCmd.Flags().Bool("progress", true, "Show progress bars per stage")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"render.world", "world"},
		{"render.type", "type"},
		{"render.output", "output"},
		{"render.include_unlimited_tracking", "include-unlimited-tracking"},
		{"render.disable_zoom_sort", "disable-zoom-sort"},
		{"render.copy_template", "copy-template"},
		{"render.mbtiles", "mbtiles"},
		{"render.workers", "workers"},
		{"render.progress", "progress"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, renderCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := pipeline.Config{
		World:                    viper.GetString("render.world"),
		WorldType:                viper.GetString("render.type"),
		Output:                   viper.GetString("render.output"),
		IncludeUnlimitedTracking: viper.GetBool("render.include_unlimited_tracking"),
		DisableZoomSort:          viper.GetBool("render.disable_zoom_sort"),
		CopyTemplate:             viper.GetBool("render.copy_template"),
		MBTiles:                  viper.GetString("render.mbtiles"),
		Workers:                  viper.GetInt("render.workers"),
		ShowProgress:             viper.GetBool("render.progress"),
	}

	if logger == nil {
		initLogging()
	}

	if cfg.World == "" {
		return fmt.Errorf("--world is required")
	}
	if cfg.Output == "" {
		return fmt.Errorf("--output is required")
	}
	if cfg.WorldType != "java" && cfg.WorldType != "bds" {
		return fmt.Errorf("invalid type %q: must be 'java' or 'bds'", cfg.WorldType)
	}

	logger.Info("Starting map render",
		"world", cfg.World,
		"type", cfg.WorldType,
		"output", cfg.Output,
		"workers", cfg.Workers,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, cancelling...")
		cancel()
	}()

	return pipeline.Run(ctx, cfg, logger)
}
