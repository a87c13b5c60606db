package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/runger/sessiondeck/internal/config"
	"github.com/runger/sessiondeck/internal/logging"
	"github.com/runger/sessiondeck/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sessiondeck",
	Short: "browse and track conference session recordings",
	Long: `sessiondeck - a terminal browser for conference session recordings
  - browse sessions grouped by day and track
  - filter live, keep the playing session pinned in view
  - mark sessions watched, favorited, or downloaded`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.sessiondeck/config.yaml)")

	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the config and builds a logger from it. The returned
// closer is nil when logging goes to stderr.
func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := logging.Open(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// openLibrary opens the session library per the loaded config.
func openLibrary(cfg *config.Config, logger *slog.Logger) (*storage.Library, error) {
	return storage.Open(cfg.Library.Path, logger)
}
