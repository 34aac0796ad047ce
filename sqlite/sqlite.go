// Package sqlite provides SQLite-based storage for page snapshots, the
// subscriber directory and run history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database, applies the connection pragmas and creates the
// schema if needed. Opening an existing file keeps its data.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; the snapshot compare-and-swap
	// relies on writes being serialized.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, pragma := range db.pragmas() {
		if _, err := conn.Exec("PRAGMA " + pragma); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}

	db.db = conn
	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// pragmas returns the connection settings. WAL is skipped for in-memory
// databases, which do not support it.
func (db *DB) pragmas() []string {
	pragmas := []string{"busy_timeout = 5000"}
	if db.path != ":memory:" {
		pragmas = append(pragmas, "journal_mode = WAL")
	}
	// Subscriptions cascade when their subscriber is deleted.
	return append(pragmas, "foreign_keys = ON")
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// Stats returns database statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			page_id TEXT PRIMARY KEY,
			version_number INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			raw_text TEXT NOT NULL DEFAULT '',
			source_version INTEGER NOT NULL DEFAULT 0,
			extracted_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot_history (
			page_id TEXT NOT NULL,
			version_number INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			raw_text TEXT NOT NULL DEFAULT '',
			source_version INTEGER NOT NULL DEFAULT 0,
			extracted_at TEXT NOT NULL,
			PRIMARY KEY (page_id, version_number)
		);

		CREATE TABLE IF NOT EXISTS subscribers (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			frequency TEXT NOT NULL,
			digest_format TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			subscriber_id TEXT NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
			page_id TEXT NOT NULL,
			page_name TEXT NOT NULL DEFAULT '',
			subscribed_at TEXT NOT NULL,
			PRIMARY KEY (subscriber_id, page_id)
		);

		CREATE INDEX IF NOT EXISTS idx_subscriptions_page_id ON subscriptions(page_id);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			pages_processed INTEGER NOT NULL DEFAULT 0,
			pages_with_changes INTEGER NOT NULL DEFAULT 0,
			pages_successful INTEGER NOT NULL DEFAULT 0,
			stats TEXT NOT NULL DEFAULT '{}',
			results TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := db.db.Exec(schema)
	return err
}
