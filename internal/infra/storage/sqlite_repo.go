package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLiteMatchEventRepository implements MatchEventRepository for SQLite.
type SQLiteMatchEventRepository struct {
	db *sql.DB
}

func NewSQLiteMatchEventRepository(db *sql.DB) *SQLiteMatchEventRepository {
	return &SQLiteMatchEventRepository{db: db}
}

func (r *SQLiteMatchEventRepository) Append(ctx context.Context, event MatchEventRecord) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO match_events (id, session_id, timestamp, event_type, actor_id, target_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Timestamp, event.EventType,
		event.ActorID, event.TargetID, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append match event: %w", err)
	}
	return nil
}

func (r *SQLiteMatchEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]MatchEventRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []MatchEventRecord
	for rows.Next() {
		var e MatchEventRecord
		var payloadStr string
		err := rows.Scan(&e.ID, &e.SessionID, &e.Timestamp, &e.EventType, &e.ActorID, &e.TargetID, &payloadStr)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteMatchEventRepository) GetBySessionID(ctx context.Context, sessionID string) ([]MatchEventRecord, error) {
	query := `SELECT id, session_id, timestamp, event_type, actor_id, target_id, payload FROM match_events WHERE session_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteMatchEventRepository) GetByActorID(ctx context.Context, sessionID, actorID string) ([]MatchEventRecord, error) {
	query := `SELECT id, session_id, timestamp, event_type, actor_id, target_id, payload FROM match_events WHERE session_id = ? AND actor_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, sessionID, actorID)
}

func (r *SQLiteMatchEventRepository) GetByEventType(ctx context.Context, sessionID, eventType string) ([]MatchEventRecord, error) {
	query := `SELECT id, session_id, timestamp, event_type, actor_id, target_id, payload FROM match_events WHERE session_id = ? AND event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

// ---------------------------------------------------------
// SQLiteResultRepository
// ---------------------------------------------------------

type SQLiteResultRepository struct {
	db *sql.DB
}

func NewSQLiteResultRepository(db *sql.DB) *SQLiteResultRepository {
	return &SQLiteResultRepository{db: db}
}

func (r *SQLiteResultRepository) Insert(ctx context.Context, result MatchResultRecord) error {
	query := `
		INSERT INTO match_results (session_id, join_code, winning_role, started_at, ended_at, hunters, hunted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		result.SessionID, result.JoinCode, result.WinningRole,
		result.StartedAt, result.EndedAt, result.Hunters, result.Hunted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match result: %w", err)
	}
	return nil
}

func (r *SQLiteResultRepository) GetBySessionID(ctx context.Context, sessionID string) (*MatchResultRecord, error) {
	query := `SELECT session_id, join_code, winning_role, started_at, ended_at, hunters, hunted FROM match_results WHERE session_id = ?`
	var m MatchResultRecord
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&m.SessionID, &m.JoinCode, &m.WinningRole, &m.StartedAt, &m.EndedAt, &m.Hunters, &m.Hunted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *SQLiteResultRepository) ListRecent(ctx context.Context, limit int) ([]MatchResultRecord, error) {
	query := `SELECT session_id, join_code, winning_role, started_at, ended_at, hunters, hunted FROM match_results ORDER BY ended_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MatchResultRecord
	for rows.Next() {
		var m MatchResultRecord
		if err := rows.Scan(&m.SessionID, &m.JoinCode, &m.WinningRole, &m.StartedAt, &m.EndedAt, &m.Hunters, &m.Hunted); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
