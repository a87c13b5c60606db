package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/sessiondeck/internal/rows"
	"github.com/runger/sessiondeck/internal/storage"
)

var (
	listQuery string
	listDay   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the session list without opening the browser",
	Long: `Print the session list grouped by day and track.

Examples:
  sessiondeck list
  sessiondeck list --query=profiling
  sessiondeck list --day=2`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Only show sessions matching this text")
	listCmd.Flags().IntVar(&listDay, "day", 0, "Only show sessions from this day")
}

func runList(cmd *cobra.Command, args []string) error {
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

	sessions, err := lib.ListSessions(ctx)
	if err != nil {
		return err
	}
	sessions = filterSessions(sessions)

	if len(sessions) == 0 {
		fmt.Println("No matching sessions.")
		return nil
	}

	for _, r := range rows.Build(sessions) {
		if r.Kind == rows.KindHeader {
			fmt.Println(r.Label)
			continue
		}
		printSession(r.Session)
	}

	fmt.Printf("\n%d session(s)\n", len(sessions))
	return nil
}

func filterSessions(sessions []storage.Session) []storage.Session {
	query := strings.ToLower(strings.TrimSpace(listQuery))
	out := sessions[:0]
	for _, s := range sessions {
		if listDay > 0 && s.Day != listDay {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(s.Title), query) &&
			!strings.Contains(strings.ToLower(s.Speaker), query) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func printSession(s storage.Session) {
	var flags strings.Builder
	for _, f := range []struct {
		set   bool
		glyph string
	}{
		{s.Watched, "✓"},
		{s.Favorited, "♥"},
		{s.Downloaded, "↓"},
		{s.Live, "●"},
	} {
		if f.set {
			flags.WriteString(f.glyph)
		} else {
			flags.WriteString(" ")
		}
	}

	dur := ""
	if s.DurationSec > 0 {
		dur = fmt.Sprintf("%dm", (s.DurationSec+59)/60)
	}
	fmt.Printf("  %s  %-40s  %-20s  %4s  %s\n", flags.String(), s.Title, s.Speaker, dur, s.ID)
}
