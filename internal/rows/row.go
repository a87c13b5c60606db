// Package rows turns flat session lists into the ordered row sequences
// the deck displays: items grouped under one header per (day, track),
// in display order.
package rows

import (
	"fmt"
	"slices"

	"github.com/runger/sessiondeck/internal/storage"
)

// Kind discriminates the Row variant.
type Kind int

const (
	// KindHeader is a group header labeling the items below it.
	KindHeader Kind = iota
	// KindItem is a session row.
	KindItem
)

// Row is one displayed position: a group header or a session item.
// Rows are values; equality is structural (identity and full content).
type Row struct {
	Kind    Kind
	Label   string          // header label; empty for items
	Session storage.Session // item payload; zero for headers
}

// HeaderRow builds a header row.
func HeaderRow(label string) Row {
	return Row{Kind: KindHeader, Label: label}
}

// ItemRow builds a session row.
func ItemRow(s storage.Session) Row {
	return Row{Kind: KindItem, Session: s}
}

// Key is the identity-only projection used to match rows across
// snapshots: headers match by label, items by session ID, regardless of
// content changes.
func (r Row) Key() string {
	if r.Kind == KindHeader {
		return "hdr\x00" + r.Label
	}
	return "ses\x00" + r.Session.ID
}

// Selectable reports whether the row can hold selection. Headers never can.
func (r Row) Selectable() bool {
	return r.Kind == KindItem
}

// Snapshot is one immutable ordered sequence of rows. It is replaced
// wholesale on every change, never mutated.
type Snapshot []Row

// Equal reports structural equality of the full ordered sequence.
func (s Snapshot) Equal(other Snapshot) bool {
	return slices.Equal(s, other)
}

// IndexOfKey returns the position of the row with the given identity
// key, or -1.
func (s Snapshot) IndexOfKey(key string) int {
	for i, r := range s {
		if r.Key() == key {
			return i
		}
	}
	return -1
}

// IndexOfID returns the position of the item row with the given session
// ID, or -1.
func (s Snapshot) IndexOfID(id string) int {
	return s.IndexOfKey(ItemRow(storage.Session{ID: id}).Key())
}

// ContainsID reports whether an item with the given session ID exists.
func (s Snapshot) ContainsID(id string) bool {
	return s.IndexOfID(id) >= 0
}

// GroupLabel names the header a session sorts under.
func GroupLabel(s storage.Session) string {
	return fmt.Sprintf("Day %d · %s", s.Day, s.Track)
}

// Build produces a snapshot from sessions already in display order
// (day, track, title), inserting a header row whenever the group
// changes.
func Build(sessions []storage.Session) Snapshot {
	var snap Snapshot
	lastLabel := ""
	for _, s := range sessions {
		label := GroupLabel(s)
		if label != lastLabel {
			snap = append(snap, HeaderRow(label))
			lastLabel = label
		}
		snap = append(snap, ItemRow(s))
	}
	return snap
}
