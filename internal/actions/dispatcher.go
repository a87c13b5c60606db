package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/runger/sessiondeck/internal/storage"
)

// ErrNoTargets is returned when an action is dispatched with nothing to
// apply it to.
var ErrNoTargets = errors.New("action has no targets")

// Store is the mutation surface the dispatcher needs.
type Store interface {
	SetWatched(ctx context.Context, id string, watched bool) error
	SetFavorited(ctx context.Context, id string, favorited bool) error
	SetDownloaded(ctx context.Context, id string, downloaded bool) error
}

// Dispatcher applies actions to the library. State changes go through
// the store, whose change feed then drives the live views; reveal shells
// out to the configured command template.
type Dispatcher struct {
	store     Store
	revealCmd string // template; "{id}" and "{title}" are substituted
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. revealCmd may be empty, which
// disables Reveal.
func NewDispatcher(store Store, revealCmd string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, revealCmd: revealCmd, logger: logger}
}

// Dispatch applies the action to every target, continuing past per-target
// failures and returning them joined.
func (d *Dispatcher) Dispatch(ctx context.Context, a Action) error {
	if len(a.Targets) == 0 {
		return ErrNoTargets
	}

	d.logger.Debug("dispatching action", "action", a.Kind.String(), "targets", len(a.Targets))

	if a.Kind == Reveal {
		return d.reveal(ctx, a.Targets[0])
	}

	var errs []error
	for _, s := range a.Targets {
		if err := d.apply(ctx, a.Kind, s); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", a.Kind, s.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) apply(ctx context.Context, kind Kind, s storage.Session) error {
	switch kind {
	case MarkWatched:
		return d.store.SetWatched(ctx, s.ID, true)
	case MarkUnwatched:
		return d.store.SetWatched(ctx, s.ID, false)
	case Favorite:
		return d.store.SetFavorited(ctx, s.ID, true)
	case Unfavorite:
		return d.store.SetFavorited(ctx, s.ID, false)
	case Download:
		if s.Downloaded {
			return nil // already present
		}
		return d.store.SetDownloaded(ctx, s.ID, true)
	case CancelDownload:
		return d.store.SetDownloaded(ctx, s.ID, false)
	default:
		return fmt.Errorf("unsupported action kind %d", kind)
	}
}

// reveal expands the configured command template for s and runs it.
func (d *Dispatcher) reveal(ctx context.Context, s storage.Session) error {
	if d.revealCmd == "" {
		return errors.New("no reveal command configured")
	}

	argv, err := RevealArgv(d.revealCmd, s)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("reveal command failed: %w", err)
	}
	return nil
}

// RevealArgv parses the reveal command template into argv with the
// session's fields substituted. Substitution happens after shell-style
// splitting, so titles with spaces stay one argument.
func RevealArgv(template string, s storage.Session) ([]string, error) {
	argv, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("invalid reveal command template: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty reveal command template")
	}

	r := strings.NewReplacer("{id}", s.ID, "{title}", s.Title)
	for i, a := range argv {
		argv[i] = r.Replace(a)
	}
	return argv, nil
}
