package kvstore

import (
	"context"
	"database/sql"
	"fmt"

	// Supported database/sql drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists keys in a single table. SQLite covers the embedded,
// single-host deployment; PostgreSQL the shared one.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

const sqlSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
)`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// OpenSQLStore opens (and migrates) a store for the given driver.
// Supported drivers: "sqlite3" and "postgres".
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	store := &SQLStore{db: db, postgres: driver == "postgres"}
	schema := sqliteSchema
	if store.postgres {
		schema = sqlSchema
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate kv schema: %w", err)
	}
	return store, nil
}

// NewSQLStore wraps an existing connection (used by tests)
func NewSQLStore(db *sql.DB, postgres bool) *SQLStore {
	return &SQLStore{db: db, postgres: postgres}
}

// Get returns the value for key
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE key = ?`
	if s.postgres {
		query = `SELECT value FROM kv_entries WHERE key = $1`
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set writes the value for key
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv_entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if s.postgres {
		query = `INSERT INTO kv_entries (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	}

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes the key
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE key = ?`
	if s.postgres {
		query = `DELETE FROM kv_entries WHERE key = $1`
	}

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
