package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stamped into PRAGMA user_version.
// 1 - cache_entries key/value table
const currentSchemaVersion = 1

// ErrSchemaTooNew is returned by Open for a cache file written by a newer
// schema version.
var ErrSchemaTooNew = errors.New("cache schema is newer than supported")

// Store is the local durable cache.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// serializes every read-modify-write transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
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

// applySchema creates the cache table and stamps the schema version.
// A cache written by a newer schema version is refused.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: cache is version %d, this build supports %d",
			ErrSchemaTooNew, version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// getJSON decodes the value stored under key into dst.
// Returns found=false when the key has never been written.
func (s *Store) getJSON(ctx context.Context, key string, dst any) (found bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `
		SELECT value FROM cache_entries WHERE key = ?
	`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// putJSON replaces the value stored under key.
func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, upsertSQL, key, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

const upsertSQL = `
	INSERT INTO cache_entries (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// update runs a read-modify-write of the JSON value under key in one
// transaction. fn receives the decoded current value (zero value if absent)
// and returns the value to store. If fn returns an error nothing is written.
func update[T any](ctx context.Context, s *Store, key string, fn func(cur T, found bool) (T, error)) (T, error) {
	var zero T

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("update %s: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	var (
		cur   T
		raw   string
		found = true
	)
	err = tx.QueryRowContext(ctx, `
		SELECT value FROM cache_entries WHERE key = ?
	`, key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		found = false
	case err != nil:
		return zero, fmt.Errorf("update %s: read: %w", key, err)
	default:
		if err := json.Unmarshal([]byte(raw), &cur); err != nil {
			return zero, fmt.Errorf("update %s: decode: %w", key, err)
		}
	}

	next, err := fn(cur, found)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return zero, fmt.Errorf("update %s: encode: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, upsertSQL, key, string(data), s.now().UnixMilli()); err != nil {
		return zero, fmt.Errorf("update %s: write: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("update %s: commit: %w", key, err)
	}

	return next, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
