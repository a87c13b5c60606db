package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/runger/sessiondeck/internal/rows"
	"github.com/runger/sessiondeck/internal/storage"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	watchedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	liveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	queryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// colorCapable reports whether the terminal renders colors at all; on a
// dumb terminal the markers carry the state on their own.
func colorCapable() bool {
	return termenv.ColorProfile() != termenv.Ascii
}

// ansiRE matches CSI and OSC escape sequences that could leak from
// session titles into the list.
var ansiRE = regexp.MustCompile(`\x1b(?:\[[0-9;]*[A-Za-z]|\].*?(?:\x1b\\|\x07))`)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// middleTruncate truncates a string in the middle with an ellipsis if
// its display width exceeds maxWidth. It is display-width-aware,
// correctly handling CJK characters and emoji that occupy two columns.
func middleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	const ellipsis = "…"
	if maxWidth < 3 {
		return truncateLeft(s, maxWidth)
	}

	remaining := maxWidth - 1
	head := truncateLeft(s, (remaining+1)/2)
	tail := truncateRight(s, remaining/2)
	return head + ellipsis + tail
}

// truncateLeft returns the longest prefix of s whose display width does
// not exceed maxWidth.
func truncateLeft(s string, maxWidth int) string {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > maxWidth {
			return s[:i]
		}
		w += rw
	}
	return s
}

// truncateRight returns the longest suffix of s whose display width
// does not exceed maxWidth.
func truncateRight(s string, maxWidth int) string {
	runes := []rune(s)
	w := 0
	start := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > maxWidth {
			break
		}
		w += rw
		start = i
	}
	return string(runes[start:])
}

// markers renders the state glyphs in front of a session title.
func markers(s storage.Session, playingID string) string {
	var b strings.Builder
	if s.ID == playingID {
		b.WriteString("▶")
	} else {
		b.WriteString(" ")
	}
	switch {
	case s.Live:
		b.WriteString("●")
	case s.Watched:
		b.WriteString("✓")
	default:
		b.WriteString(" ")
	}
	if s.Favorited {
		b.WriteString("♥")
	} else {
		b.WriteString(" ")
	}
	if s.Downloaded {
		b.WriteString("↓")
	} else {
		b.WriteString(" ")
	}
	return b.String()
}

// renderRow renders one list row at the given width.
func renderRow(r rows.Row, selected bool, playingID string, width int) string {
	if r.Kind == rows.KindHeader {
		return headerStyle.Render(middleTruncate(r.Label, width))
	}

	s := r.Session
	label := stripANSI(s.Title)
	if s.Speaker != "" {
		label += "  " + s.Speaker
	}
	if s.DurationSec > 0 {
		label += "  " + formatDuration(s.DurationSec)
	}

	prefix := "  "
	if selected {
		prefix = "> "
	}
	line := prefix + markers(s, playingID) + " " + label
	line = middleTruncate(line, width)

	switch {
	case selected:
		return selectedStyle.Render(line)
	case s.Live && colorCapable():
		return liveStyle.Render(line)
	case s.Watched:
		return watchedStyle.Render(line)
	default:
		return normalStyle.Render(line)
	}
}

// formatDuration renders a duration as "47m" or "1h02m".
func formatDuration(sec int) string {
	h := sec / 3600
	m := (sec % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
