package rows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/sessiondeck/internal/storage"
)

func mkSession(id, track, title string, day int) storage.Session {
	return storage.Session{ID: id, Title: title, Track: track, Day: day}
}

func TestBuildInsertsHeaderPerGroup(t *testing.T) {
	snap := Build([]storage.Session{
		mkSession("s1", "Systems", "Alpha", 1),
		mkSession("s2", "Systems", "Beta", 1),
		mkSession("s3", "Tools", "Gamma", 1),
		mkSession("s4", "Systems", "Delta", 2),
	})

	require.Len(t, snap, 7)
	assert.Equal(t, HeaderRow("Day 1 · Systems"), snap[0])
	assert.Equal(t, "s1", snap[1].Session.ID)
	assert.Equal(t, "s2", snap[2].Session.ID)
	assert.Equal(t, HeaderRow("Day 1 · Tools"), snap[3])
	assert.Equal(t, "s3", snap[4].Session.ID)
	assert.Equal(t, HeaderRow("Day 2 · Systems"), snap[5])
	assert.Equal(t, "s4", snap[6].Session.ID)
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestRowKeyIgnoresContent(t *testing.T) {
	a := ItemRow(mkSession("s1", "Systems", "Alpha", 1))
	b := a
	b.Session.Watched = true

	assert.Equal(t, a.Key(), b.Key(), "identity key must be content independent")
	assert.NotEqual(t, a, b, "structural equality must see the content change")
}

func TestHeaderAndItemKeysDisjoint(t *testing.T) {
	h := HeaderRow("x")
	i := ItemRow(storage.Session{ID: "x"})
	assert.NotEqual(t, h.Key(), i.Key())
}

func TestSelectable(t *testing.T) {
	assert.False(t, HeaderRow("h").Selectable())
	assert.True(t, ItemRow(mkSession("s1", "Systems", "Alpha", 1)).Selectable())
}

func TestSnapshotLookups(t *testing.T) {
	snap := Build([]storage.Session{
		mkSession("s1", "Systems", "Alpha", 1),
		mkSession("s2", "Systems", "Beta", 1),
	})

	assert.Equal(t, 0, snap.IndexOfKey(HeaderRow("Day 1 · Systems").Key()))
	assert.Equal(t, 2, snap.IndexOfID("s2"))
	assert.Equal(t, -1, snap.IndexOfID("missing"))
	assert.True(t, snap.ContainsID("s1"))
	assert.False(t, snap.ContainsID("s9"))
}

func TestSnapshotEqual(t *testing.T) {
	sessions := []storage.Session{mkSession("s1", "Systems", "Alpha", 1)}
	a := Build(sessions)
	b := Build(sessions)
	assert.True(t, a.Equal(b))

	sessions[0].Watched = true
	c := Build(sessions)
	assert.False(t, a.Equal(c))
}
