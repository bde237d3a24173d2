// Package store persists sessions and learner profiles in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abhisek/tutord/internal/profile"
	"github.com/abhisek/tutord/internal/session"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection and hands out repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn, applies recommended
// pragmas and runs schema migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sessions returns a session.Repo backed by this store.
func (s *Store) Sessions() session.Repo {
	return &sessionRepo{db: s.db}
}

// Profiles returns a profile.Repo backed by this store.
func (s *Store) Profiles() profile.Repo {
	return &profileRepo{db: s.db}
}

// applyPragmas configures SQLite for a small concurrent service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	learner_id TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	finished   INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_learner ON sessions (learner_id, created_at);

CREATE TABLE IF NOT EXISTS profiles (
	learner_id         TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	grade_level        TEXT NOT NULL DEFAULT '',
	xp                 INTEGER NOT NULL DEFAULT 0,
	current_session_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS completed_items (
	learner_id TEXT NOT NULL,
	item_id    TEXT NOT NULL,
	PRIMARY KEY (learner_id, item_id)
);

CREATE TABLE IF NOT EXISTS mastery (
	learner_id TEXT NOT NULL,
	topic      TEXT NOT NULL,
	score      REAL NOT NULL,
	PRIMARY KEY (learner_id, topic)
);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. TUTORD_DB environment variable
// 2. $XDG_DATA_HOME/tutord/tutord.db
// 3. ~/.local/share/tutord/tutord.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TUTORD_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "tutord", "tutord.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
