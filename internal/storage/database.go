package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens the local index database at the given path. WAL mode lets the
// sync writer and concurrent recall readers overlap; busy_timeout covers the
// brief writer lock during batch commits. The pragmas ride the DSN so every
// pooled connection gets them.
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// A single writer plus pooled readers.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	return db, nil
}

// Migrate creates the index schema. It is idempotent and runs on every start.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS doc_registry (
			doc_id TEXT PRIMARY KEY,
			title TEXT,
			hpath TEXT,
			notebook_id TEXT,
			notebook_name TEXT,
			updated_at TEXT,
			indexed_at TEXT,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at TEXT,
			tags TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_doc_registry_updated ON doc_registry(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_doc_registry_deleted ON doc_registry(deleted, deleted_at);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS block_fts USING fts5(
			block_id UNINDEXED,
			doc_id UNINDEXED,
			content,
			tokenize='porter unicode61'
		);`,
		`CREATE TABLE IF NOT EXISTS sync_metadata (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TEXT
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
