// Package sqlitestore backs the script store with an embedded SQLite
// database, for single-node deployments that want scripts to survive a
// restart without running a separate backend.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tapwave/scriptstash"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scripts (
	hash       TEXT PRIMARY KEY,
	data       BLOB    NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);`

// Store is a SQLite-backed implementation of [scriptstash.Store]. Expiry is
// tracked in an expires_at column (unix seconds, 0 for no expiry) and
// enforced lazily on read, like the in-memory store.
type Store struct {
	db *sql.DB
}

var _ scriptstash.Store = (*Store)(nil)

// Open creates or opens a SQLite database at the given path and applies the
// required pragmas and schema. It is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors under concurrent uploads.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Get returns the stored bytes and the remaining ttl in seconds, following
// the sentinel convention of [scriptstash.Store]. An expired row is deleted
// on the way out.
func (s *Store) Get(ctx context.Context, key string) ([]byte, int64, error) {
	var (
		data      []byte
		expiresAt int64
	)

	row := s.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM scripts WHERE hash = ?`, key)

	err := row.Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scriptstash.TTLAbsent, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query script: %w", err)
	}

	if expiresAt == 0 {
		return data, scriptstash.TTLNoExpiry, nil
	}

	now := time.Now().Unix()
	if expiresAt <= now {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM scripts WHERE hash = ? AND expires_at = ?`, key, expiresAt); err != nil {
			return nil, 0, fmt.Errorf("failed to delete expired script: %w", err)
		}
		return nil, scriptstash.TTLAbsent, nil
	}

	return data, expiresAt - now, nil
}

// Set writes data under key, overwriting any previous row. If
// ttlSeconds <= 0, the row never expires.
func (s *Store) Set(ctx context.Context, key string, data []byte, ttlSeconds int64) error {
	var expiresAt int64
	if ttlSeconds > 0 {
		expiresAt = time.Now().Unix() + ttlSeconds
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scripts (hash, data, expires_at) VALUES (?, ?, ?)`,
		key, data, expiresAt); err != nil {
		return fmt.Errorf("failed to store script: %w", err)
	}
	return nil
}
