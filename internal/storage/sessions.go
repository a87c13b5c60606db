package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session is not found.
var ErrSessionNotFound = errors.New("session not found")

// errSessionIDRequired is the validation message for a missing session_id.
const errSessionIDRequired = "session_id is required"

// Session is one recorded (or live) conference session. ID is the stable
// identity; every other field is display state and may change over time.
type Session struct {
	ID          string
	Title       string
	Track       string
	Day         int
	Speaker     string
	DurationSec int
	Watched     bool
	Favorited   bool
	Live        bool
	Downloaded  bool
	Progress    float64
}

// UpsertSession inserts or replaces a session record.
func (l *Library) UpsertSession(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	if s.ID == "" {
		return errors.New(errSessionIDRequired)
	}
	if s.Title == "" {
		return errors.New("title is required")
	}
	if s.Track == "" {
		return errors.New("track is required")
	}
	if s.Day < 1 {
		return errors.New("day must be >= 1")
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, title, track, day, speaker, duration_sec,
			watched, favorited, live, downloaded, progress
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			title = excluded.title,
			track = excluded.track,
			day = excluded.day,
			speaker = excluded.speaker,
			duration_sec = excluded.duration_sec,
			watched = excluded.watched,
			favorited = excluded.favorited,
			live = excluded.live,
			downloaded = excluded.downloaded,
			progress = excluded.progress
	`,
		s.ID, s.Title, s.Track, s.Day, s.Speaker, s.DurationSec,
		s.Watched, s.Favorited, s.Live, s.Downloaded, s.Progress,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	l.notifier.notify()
	return nil
}

// GetSession retrieves a session by ID.
func (l *Library) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New(errSessionIDRequired)
	}

	row := l.db.QueryRowContext(ctx, `
		SELECT session_id, title, track, day, speaker, duration_sec,
		       watched, favorited, live, downloaded, progress
		FROM sessions WHERE session_id = ?
	`, id)

	var s Session
	err := row.Scan(
		&s.ID, &s.Title, &s.Track, &s.Day, &s.Speaker, &s.DurationSec,
		&s.Watched, &s.Favorited, &s.Live, &s.Downloaded, &s.Progress,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// ListSessions returns all sessions in display order (day, track, title).
func (l *Library) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, title, track, day, speaker, duration_sec,
		       watched, favorited, live, downloaded, progress
		FROM sessions
		ORDER BY day, track, title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		err := rows.Scan(
			&s.ID, &s.Title, &s.Track, &s.Day, &s.Speaker, &s.DurationSec,
			&s.Watched, &s.Favorited, &s.Live, &s.Downloaded, &s.Progress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// SetWatched updates a session's watched flag.
func (l *Library) SetWatched(ctx context.Context, id string, watched bool) error {
	return l.setFlag(ctx, id, "watched", watched)
}

// SetFavorited updates a session's favorited flag.
func (l *Library) SetFavorited(ctx context.Context, id string, favorited bool) error {
	return l.setFlag(ctx, id, "favorited", favorited)
}

// SetLive updates a session's live flag.
func (l *Library) SetLive(ctx context.Context, id string, live bool) error {
	return l.setFlag(ctx, id, "live", live)
}

// SetDownloaded updates a session's downloaded flag.
func (l *Library) SetDownloaded(ctx context.Context, id string, downloaded bool) error {
	return l.setFlag(ctx, id, "downloaded", downloaded)
}

// SetProgress updates a session's playback progress (clamped to 0..1).
func (l *Library) SetProgress(ctx context.Context, id string, progress float64) error {
	if id == "" {
		return errors.New(errSessionIDRequired)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	result, err := l.db.ExecContext(ctx, `
		UPDATE sessions SET progress = ? WHERE session_id = ?
	`, progress, id)
	if err != nil {
		return fmt.Errorf("failed to set progress: %w", err)
	}
	return l.afterUpdate(result)
}

// DeleteSession removes a session from the library.
func (l *Library) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return errors.New(errSessionIDRequired)
	}

	result, err := l.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE session_id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return l.afterUpdate(result)
}

// setFlag flips one boolean column on a session row. The column name is
// always one of the fixed identifiers above, never user input.
func (l *Library) setFlag(ctx context.Context, id, column string, value bool) error {
	if id == "" {
		return errors.New(errSessionIDRequired)
	}

	result, err := l.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE sessions SET %s = ? WHERE session_id = ?", column),
		value, id)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return l.afterUpdate(result)
}

// afterUpdate converts a zero-row update into ErrSessionNotFound and
// notifies observers otherwise.
func (l *Library) afterUpdate(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	l.notifier.notify()
	return nil
}
