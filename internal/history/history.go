// Package history keeps a record of started plays in SQLite. It is a
// sidecar to the player: the playlist and playback state themselves are
// session-only.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a persistent play-history log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Entry is one recorded play.
type Entry struct {
	ID        int64
	Number    string
	Title     string
	Artist    string
	StartedAt time.Time
}

// New opens (or creates) the history database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps in-memory databases consistent and is plenty
	// for this write rate.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			number TEXT,
			title TEXT NOT NULL,
			artist TEXT,
			started_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_started_at ON plays(started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record logs the start of a play.
func (s *Store) Record(ctx context.Context, number, title, artist string, startedAt time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO plays (number, title, artist, started_at) VALUES (?, ?, ?, ?)`,
		number, title, artist, startedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to n plays, most recent first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, title, artist, started_at
		 FROM plays
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started int64
		if err := rows.Scan(&e.ID, &e.Number, &e.Title, &e.Artist, &started); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		e.StartedAt = time.Unix(started, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plays: %w", err)
	}
	return entries, nil
}

// Cleanup removes plays older than the given age and returns how many were
// deleted.
func (s *Store) Cleanup(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM plays WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup plays: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
