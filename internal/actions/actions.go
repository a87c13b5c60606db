// Package actions carries the context-menu actions of the deck as
// explicit tagged values and applies them to the selected sessions.
package actions

import "github.com/runger/sessiondeck/internal/storage"

// Kind identifies an action.
type Kind int

const (
	// MarkWatched flags the targets as watched.
	MarkWatched Kind = iota
	// MarkUnwatched clears the watched flag.
	MarkUnwatched
	// Favorite flags the targets as favorited.
	Favorite
	// Unfavorite clears the favorited flag.
	Unfavorite
	// Download marks the targets downloaded.
	Download
	// CancelDownload clears the downloaded flag.
	CancelDownload
	// Reveal opens the first target with the configured reveal command.
	Reveal
)

// String returns the action name for logs and menus.
func (k Kind) String() string {
	switch k {
	case MarkWatched:
		return "mark-watched"
	case MarkUnwatched:
		return "mark-unwatched"
	case Favorite:
		return "favorite"
	case Unfavorite:
		return "unfavorite"
	case Download:
		return "download"
	case CancelDownload:
		return "cancel-download"
	case Reveal:
		return "reveal"
	default:
		return "unknown"
	}
}

// Action is one dispatch request: a kind plus the sessions it applies to
// (the current selection, with the clicked row merged in by the caller).
type Action struct {
	Kind    Kind
	Targets []storage.Session
}

// New builds an action over the union of selected and clicked, keeping
// selection order and avoiding duplicates.
func New(kind Kind, selected []storage.Session, clicked *storage.Session) Action {
	targets := make([]storage.Session, 0, len(selected)+1)
	seen := make(map[string]bool, len(selected)+1)
	for _, s := range selected {
		if !seen[s.ID] {
			targets = append(targets, s)
			seen[s.ID] = true
		}
	}
	if clicked != nil && !seen[clicked.ID] {
		targets = append(targets, *clicked)
	}
	return Action{Kind: kind, Targets: targets}
}
