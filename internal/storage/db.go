// Package storage provides SQLite-based persistent storage for the
// session library, plus a change-notification feed so views can stay
// synchronized with mutations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// walCheckpointInterval is how often we checkpoint the WAL file to
// prevent unbounded growth during long-running browse sessions.
const walCheckpointInterval = 5 * time.Minute

// dataVersionPollInterval is how often we check SQLite's data_version
// counter for commits made by other connections, so a running browse
// view sees edits from other sessiondeck processes.
const dataVersionPollInterval = 500 * time.Millisecond

// Library is the SQLite-backed session library.
type Library struct {
	db            *sql.DB
	logger        *slog.Logger
	notifier      notifier
	stopCh        chan struct{} // signals background goroutines to stop
	stoppedCh     chan struct{} // signals the checkpoint loop has stopped
	pollStoppedCh chan struct{} // signals the data_version poll has stopped
	closeOnce     sync.Once     // ensures Close() is idempotent
	closeErr      error         // stores the error from Close()
}

// DefaultPath returns the default database path (~/.sessiondeck/library.db).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".sessiondeck", "library.db"), nil
}

// Open opens (creating if necessary) the library at dbPath. If the path
// is empty, the default path is used. The database is opened with WAL
// mode enabled for better concurrency.
func Open(dbPath string, logger *slog.Logger) (*Library, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles concurrency better with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	lib := &Library{
		db:            db,
		logger:        logger,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
		pollStoppedCh: make(chan struct{}),
	}

	if err := lib.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	go lib.walCheckpointLoop()
	go lib.watchDataVersion()

	return lib, nil
}

// Close closes the database connection.
// It is safe to call Close multiple times.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		if l.stopCh != nil {
			close(l.stopCh)
			<-l.stoppedCh
			<-l.pollStoppedCh
		}

		if l.db != nil {
			// Final checkpoint before closing to merge WAL into main db
			_, _ = l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			l.closeErr = l.db.Close()
		}
	})
	return l.closeErr
}

// walCheckpointLoop periodically checkpoints the WAL file.
func (l *Library) walCheckpointLoop() {
	defer close(l.stoppedCh)

	ticker := time.NewTicker(walCheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if _, err := l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				l.logger.Warn("wal checkpoint failed", "error", err)
			}
		}
	}
}

// watchDataVersion polls SQLite's data_version counter, which moves
// when another connection commits a change. That is how edits from a
// second sessiondeck process (mark, import, remove) reach this
// process's change feed; in-process writes notify synchronously and do
// not move the counter as seen from their own connection.
func (l *Library) watchDataVersion() {
	defer close(l.pollStoppedCh)

	ticker := time.NewTicker(dataVersionPollInterval)
	defer ticker.Stop()

	last := int64(-1)
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			var v int64
			if err := l.db.QueryRow("PRAGMA data_version").Scan(&v); err != nil {
				l.logger.Warn("data_version poll failed", "error", err)
				continue
			}
			if last >= 0 && v != last {
				l.notifier.notify()
			}
			last = v
		}
	}
}

// migrate runs database migrations to ensure the schema is up to date.
func (l *Library) migrate(ctx context.Context) error {
	currentVersion := 0
	row := l.db.QueryRowContext(ctx, `
		SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1
	`)
	if err := row.Scan(&currentVersion); err != nil {
		if err == sql.ErrNoRows || isTableNotFoundError(err) {
			currentVersion = 0
		} else {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{version: 1, sql: migrationV1},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := l.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}

		_, err := l.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms)
			VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// isTableNotFoundError reports whether err is SQLite's "no such table".
func isTableNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER PRIMARY KEY,
	applied_at_unix_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	track TEXT NOT NULL,
	day INTEGER NOT NULL,
	speaker TEXT NOT NULL DEFAULT '',
	duration_sec INTEGER NOT NULL DEFAULT 0,
	watched INTEGER NOT NULL DEFAULT 0,
	favorited INTEGER NOT NULL DEFAULT 0,
	live INTEGER NOT NULL DEFAULT 0,
	downloaded INTEGER NOT NULL DEFAULT 0,
	progress REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_order ON sessions(day, track, title);
`
