package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(filepath.Join(t.TempDir(), "library.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func testSession(id string) *Session {
	return &Session{
		ID:          id,
		Title:       "Title " + id,
		Track:       "Systems",
		Day:         1,
		Speaker:     "A. Speaker",
		DurationSec: 1800,
	}
}

func TestUpsertAndGetSession(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, lib.UpsertSession(ctx, testSession("s1")))

	got, err := lib.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Title s1", got.Title)
	assert.Equal(t, "Systems", got.Track)
	assert.False(t, got.Watched)

	// Upsert replaces the full record.
	updated := testSession("s1")
	updated.Title = "Renamed"
	updated.Watched = true
	require.NoError(t, lib.UpsertSession(ctx, updated))

	got, err = lib.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.Watched)
}

func TestUpsertSessionValidation(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr string
	}{
		{"missing id", func(s *Session) { s.ID = "" }, "session_id is required"},
		{"missing title", func(s *Session) { s.Title = "" }, "title is required"},
		{"missing track", func(s *Session) { s.Track = "" }, "track is required"},
		{"bad day", func(s *Session) { s.Day = 0 }, "day must be >= 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSession("v1")
			tt.mutate(s)
			err := lib.UpsertSession(ctx, s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	err := lib.UpsertSession(ctx, nil)
	require.Error(t, err)
}

func TestGetSessionNotFound(t *testing.T) {
	lib := openTestLibrary(t)

	_, err := lib.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessionsOrder(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	insert := func(id, track, title string, day int) {
		s := testSession(id)
		s.Track = track
		s.Title = title
		s.Day = day
		require.NoError(t, lib.UpsertSession(ctx, s))
	}

	insert("c", "Tools", "Zeta", 1)
	insert("a", "Systems", "Beta", 2)
	insert("b", "Systems", "Alpha", 1)
	insert("d", "Systems", "Alpha II", 1)

	sessions, err := lib.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 4)

	var ids []string
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	// day asc, then track asc, then title asc
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
}

func TestSetFlagsAndProgress(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, lib.UpsertSession(ctx, testSession("s1")))

	require.NoError(t, lib.SetWatched(ctx, "s1", true))
	require.NoError(t, lib.SetFavorited(ctx, "s1", true))
	require.NoError(t, lib.SetLive(ctx, "s1", true))
	require.NoError(t, lib.SetDownloaded(ctx, "s1", true))
	require.NoError(t, lib.SetProgress(ctx, "s1", 1.5)) // clamped

	got, err := lib.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Watched)
	assert.True(t, got.Favorited)
	assert.True(t, got.Live)
	assert.True(t, got.Downloaded)
	assert.Equal(t, 1.0, got.Progress)

	assert.ErrorIs(t, lib.SetWatched(ctx, "missing", true), ErrSessionNotFound)
	assert.ErrorIs(t, lib.SetProgress(ctx, "missing", 0.5), ErrSessionNotFound)
}

func TestDeleteSession(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	require.NoError(t, lib.UpsertSession(ctx, testSession("s1")))
	require.NoError(t, lib.DeleteSession(ctx, "s1"))

	_, err := lib.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, lib.DeleteSession(ctx, "s1"), ErrSessionNotFound)
}

func TestSubscribeChangesFiresOnMutation(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	fired := 0
	cancel := lib.SubscribeChanges(func() { fired++ })
	defer cancel()

	require.NoError(t, lib.UpsertSession(ctx, testSession("s1")))
	require.NoError(t, lib.SetWatched(ctx, "s1", true))
	assert.Equal(t, 2, fired)

	cancel()
	require.NoError(t, lib.SetWatched(ctx, "s1", false))
	assert.Equal(t, 2, fired)
}
