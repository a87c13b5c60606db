package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runger/sessiondeck/internal/storage"
)

func TestMiddleTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxWidth int
		want     string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "abcdefghij", 7, "abc…hij"},
		{"zero", "hello", 0, ""},
		{"tiny", "hello", 2, "he"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, middleTruncate(tt.in, tt.maxWidth))
		})
	}
}

func TestMiddleTruncateWideRunes(t *testing.T) {
	// CJK characters occupy two columns; width accounting must not
	// split them.
	got := middleTruncate("日本語のセッションタイトル", 9)
	assert.LessOrEqual(t, displayWidth(got), 9)
	assert.Contains(t, got, "…")
}

func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		w += runeWidth(r)
	}
	return w
}

func runeWidth(r rune) int {
	if r == '…' {
		return 1
	}
	if r >= 0x1100 {
		return 2
	}
	return 1
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "plain", stripANSI("plain"))
	assert.Equal(t, "redtext", stripANSI("\x1b[31mred\x1b[0mtext"))
}

func TestMarkers(t *testing.T) {
	s := storage.Session{ID: "s1"}
	assert.Equal(t, "    ", markers(s, ""))

	s.Watched = true
	s.Favorited = true
	s.Downloaded = true
	assert.Equal(t, " ✓♥↓", markers(s, ""))

	s.Live = true
	assert.Equal(t, " ●♥↓", markers(s, ""), "live wins over watched")

	assert.Equal(t, "▶●♥↓", markers(s, "s1"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", formatDuration(0))
	assert.Equal(t, "47m", formatDuration(47*60))
	assert.Equal(t, "1h02m", formatDuration(3720))
}

func TestFilterPredicate(t *testing.T) {
	s := storage.Session{Title: "Profiling Go Services", Track: "Systems", Speaker: "R. Pike"}

	assert.Nil(t, filterPredicate(""))
	assert.Nil(t, filterPredicate("   "))

	assert.True(t, filterPredicate("profiling")(s))
	assert.True(t, filterPredicate("SYSTEMS")(s))
	assert.True(t, filterPredicate("pike")(s))
	assert.False(t, filterPredicate("networking")(s))
}
