package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/sessiondeck/internal/storage"
)

var removeCmd = &cobra.Command{
	Use:   "remove <session-id>...",
	Short: "Delete sessions from the library",
	Long: `Delete sessions from the library.

Removal is permanent; a running browse view drops the rows live.

Examples:
  sessiondeck remove 8f41c2
  sessiondeck remove 8f41c2 91bd07`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	if err := removeSessions(ctx, lib, args); err != nil {
		return err
	}

	fmt.Printf("Removed %d session(s)\n", len(args))
	return nil
}

func removeSessions(ctx context.Context, lib *storage.Library, ids []string) error {
	for _, id := range ids {
		if err := lib.DeleteSession(ctx, id); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
	}
	return nil
}
