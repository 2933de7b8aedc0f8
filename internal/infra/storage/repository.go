// Package storage provides the persistence layer for the pursuit server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// MatchEventRecord mirrors the match log entry for persistence.
// The domain package should NOT import this; use interfaces instead.
type MatchEventRecord struct {
	ID        string         `json:"id" db:"id"`
	SessionID string         `json:"session_id" db:"session_id"`
	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
	EventType string         `json:"event_type" db:"event_type"`
	ActorID   string         `json:"actor_id" db:"actor_id"`
	TargetID  string         `json:"target_id" db:"target_id"`
	Payload   map[string]any `json:"payload" db:"payload"`
}

// MatchEventRepository defines the interface for match event persistence.
type MatchEventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event MatchEventRecord) error

	// GetBySessionID retrieves all events for a session (for replay).
	GetBySessionID(ctx context.Context, sessionID string) ([]MatchEventRecord, error)

	// GetByActorID retrieves all events performed by one player.
	GetByActorID(ctx context.Context, sessionID, actorID string) ([]MatchEventRecord, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, sessionID, eventType string) ([]MatchEventRecord, error)
}

// MatchResultRecord is the summary row written when a session ends.
type MatchResultRecord struct {
	SessionID   string    `json:"session_id" db:"session_id"`
	JoinCode    string    `json:"join_code" db:"join_code"`
	WinningRole string    `json:"winning_role" db:"winning_role"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	EndedAt     time.Time `json:"ended_at" db:"ended_at"`
	Hunters     int       `json:"hunters" db:"hunters"`
	Hunted      int       `json:"hunted" db:"hunted"`
}

// ResultRepository defines the interface for match result persistence.
type ResultRepository interface {
	// Insert writes the summary of one finished session.
	Insert(ctx context.Context, result MatchResultRecord) error

	// GetBySessionID retrieves a single result, nil when unknown.
	GetBySessionID(ctx context.Context, sessionID string) (*MatchResultRecord, error)

	// ListRecent retrieves up to limit results, most recent first.
	ListRecent(ctx context.Context, limit int) ([]MatchResultRecord, error)
}
