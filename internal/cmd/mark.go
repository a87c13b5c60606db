package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/sessiondeck/internal/storage"
)

var (
	markWatched    bool
	markFavorite   bool
	markDownloaded bool
	markLive       bool
	markProgress   float64
)

var markCmd = &cobra.Command{
	Use:   "mark <session-id>...",
	Short: "Update session flags from the command line",
	Long: `Update session flags without opening the browser.

Only the flags you pass are changed; a running browse view picks the
edits up live.

Examples:
  sessiondeck mark 8f41c2 --watched
  sessiondeck mark 8f41c2 91bd07 --favorite=false
  sessiondeck mark 8f41c2 --live       # a session went live
  sessiondeck mark 8f41c2 --progress=0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMark,
}

func init() {
	markCmd.Flags().BoolVar(&markWatched, "watched", false, "Set the watched flag")
	markCmd.Flags().BoolVar(&markFavorite, "favorite", false, "Set the favorite flag")
	markCmd.Flags().BoolVar(&markDownloaded, "downloaded", false, "Set the downloaded flag")
	markCmd.Flags().BoolVar(&markLive, "live", false, "Set the live flag")
	markCmd.Flags().Float64Var(&markProgress, "progress", 0, "Set playback progress (0..1)")
}

func runMark(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("watched") && !flags.Changed("favorite") &&
		!flags.Changed("downloaded") && !flags.Changed("live") && !flags.Changed("progress") {
		return fmt.Errorf("nothing to change: pass at least one of --watched, --favorite, --downloaded, --live, --progress")
	}

	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, id := range args {
		if err := applyMark(ctx, lib, flags.Changed, id); err != nil {
			return fmt.Errorf("mark %s: %w", id, err)
		}
	}

	fmt.Printf("Updated %d session(s)\n", len(args))
	return nil
}

func applyMark(ctx context.Context, lib *storage.Library, changed func(string) bool, id string) error {
	if changed("watched") {
		if err := lib.SetWatched(ctx, id, markWatched); err != nil {
			return err
		}
	}
	if changed("favorite") {
		if err := lib.SetFavorited(ctx, id, markFavorite); err != nil {
			return err
		}
	}
	if changed("downloaded") {
		if err := lib.SetDownloaded(ctx, id, markDownloaded); err != nil {
			return err
		}
	}
	if changed("live") {
		if err := lib.SetLive(ctx, id, markLive); err != nil {
			return err
		}
	}
	if changed("progress") {
		if err := lib.SetProgress(ctx, id, markProgress); err != nil {
			return err
		}
	}
	return nil
}
