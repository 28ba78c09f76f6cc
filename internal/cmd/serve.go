package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/jason-green-io/papyri/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview a rendered site locally",
	Long:  `Serve the output of a previous render over HTTP. With --mbtiles, tile requests are answered from the packed tile database instead of the folder pyramid.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("site", "", "Rendered site directory (required)")
	serveCmd.Flags().String("listen", ":8080", "Listen address")
	serveCmd.Flags().String("mbtiles", "", "Packed tile database to serve tiles from")
	serveCmd.Flags().String("cache-control", "no-cache", "Cache-Control header for tile responses")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"serve.site", "site"},
		{"serve.listen", "listen"},
		{"serve.mbtiles", "mbtiles"},
		{"serve.cache_control", "cache-control"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, serveCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	site := viper.GetString("serve.site")
	listen := viper.GetString("serve.listen")

	if logger == nil {
		initLogging()
	}
	if site == "" {
		return fmt.Errorf("--site is required")
	}

	cfg := server.Config{
		SiteDir:      site,
		MBTiles:      viper.GetString("serve.mbtiles"),
		CacheControl: viper.GetString("serve.cache_control"),
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	logger.Info("Serving rendered site",
		"site", filepath.Clean(site),
		"listen", listen,
		"mbtiles", cfg.MBTiles != "",
	)
	return http.ListenAndServe(listen, srv)
}
