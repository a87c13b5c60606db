package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/runger/sessiondeck/internal/actions"
	"github.com/runger/sessiondeck/internal/playback"
	"github.com/runger/sessiondeck/internal/reconcile"
	"github.com/runger/sessiondeck/internal/rows"
	"github.com/runger/sessiondeck/internal/storage"
	"github.com/runger/sessiondeck/internal/tui"
)

var (
	browseSelect      string
	browseNoAnimation bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the interactive session browser",
	Long: `Open the interactive session browser.

Sessions are grouped by conference day and track. The view follows
the library live: edits from other sessiondeck commands (or another
terminal) show up without restarting.

Keys:
  ↑/k ↓/j   move selection
  /          filter (Enter keeps it, Esc clears it)
  Enter      play / stop the selected session
  w f d      toggle watched / favorite / downloaded
  o          reveal via the configured reveal command
  q          quit

Examples:
  sessiondeck browse
  sessiondeck browse --select=8f41c2   # start with this session selected`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseSelect, "select", "", "Session ID to select once the list is displayed")
	browseCmd.Flags().BoolVar(&browseNoAnimation, "no-animation", false, "Disable animated row updates")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if terminalWidth() == 0 {
		return errors.New("browse requires an interactive terminal")
	}

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	pb := playback.NewContext()
	provider := rows.NewProvider(lib, pb.Current(), logger)
	provider.Start()
	defer provider.Stop()

	view := tui.NewDeckView()
	engine := reconcile.NewEngine(view, provider, logger)

	// Requested before the first display, so it is applied (or falls
	// back) when the list first appears.
	if browseSelect != "" {
		engine.RequestSelection(browseSelect)
	}

	animated := cfg.UI.Animated && !browseNoAnimation
	engine.PerformInitialDisplay(animated)

	dispatcher := actions.NewDispatcher(lib, cfg.UI.RevealCommand, logger)
	model := tui.New(view, engine, provider, dispatcher, pb, animated, logger)
	model.SetArtworkFetcher(detailPrefetcher(lib, logger))

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}

// detailPrefetcher warms the full record of each row entering the
// visible window, so flag toggles and the reveal command act on state
// that is already in SQLite's page cache. The fetch stops when the
// row's slot is reused for a different session.
func detailPrefetcher(lib *storage.Library, logger *slog.Logger) tui.ArtworkFetcher {
	return func(ctx context.Context, s storage.Session) {
		if _, err := lib.GetSession(ctx, s.ID); err != nil && ctx.Err() == nil {
			logger.Debug("session prefetch failed", "session", s.ID, "error", err)
		}
	}
}
