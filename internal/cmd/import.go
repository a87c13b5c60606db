package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runger/sessiondeck/internal/storage"
)

// manifest is the on-disk import format: a YAML document holding the
// sessions of a conference programme.
type manifest struct {
	Sessions []manifestSession `yaml:"sessions"`
}

type manifestSession struct {
	ID          string `yaml:"id"` // optional; generated when empty
	Title       string `yaml:"title"`
	Track       string `yaml:"track"`
	Day         int    `yaml:"day"`
	Speaker     string `yaml:"speaker"`
	DurationSec int    `yaml:"duration_sec"`
	Live        bool   `yaml:"live"`
}

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>...",
	Short: "Import sessions from YAML manifests",
	Long: `Import sessions from YAML manifests into the library.

Each manifest holds a list of sessions. Sessions without an id get a
generated one; sessions with an id of an existing library entry are
updated in place, so re-importing a corrected manifest is safe.

Manifest format:
  sessions:
    - title: Profiling Go Services
      track: Systems
      day: 1
      speaker: Ida Lund
      duration_sec: 2700

Examples:
  sessiondeck import schedule.yaml
  sessiondeck import day1.yaml day2.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	total := 0
	for _, path := range args {
		n, err := importManifest(ctx, lib, path)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		total += n
	}

	fmt.Printf("Imported %d session(s)\n", total)
	return nil
}

func importManifest(ctx context.Context, lib *storage.Library, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return 0, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for i, ms := range m.Sessions {
		s := storage.Session{
			ID:          ms.ID,
			Title:       ms.Title,
			Track:       ms.Track,
			Day:         ms.Day,
			Speaker:     ms.Speaker,
			DurationSec: ms.DurationSec,
			Live:        ms.Live,
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if err := lib.UpsertSession(ctx, &s); err != nil {
			return i, fmt.Errorf("session %d (%q): %w", i+1, ms.Title, err)
		}
	}
	return len(m.Sessions), nil
}
