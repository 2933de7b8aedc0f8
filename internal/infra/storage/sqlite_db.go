package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the necessary
// schemas for the immutable match event log and the match result summaries.
func InitSQLite(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Create tables
	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS match_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE TABLE IF NOT EXISTS match_results (
			session_id TEXT PRIMARY KEY,
			join_code TEXT NOT NULL,
			winning_role TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			hunters INTEGER NOT NULL,
			hunted INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_session_id ON match_events(session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_actor_id ON match_events(actor_id);`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_event_type ON match_events(event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_match_results_ended_at ON match_results(ended_at);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
