package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MatchEventType categorizes an entry in the match log.
type MatchEventType string

const (
	MatchSessionCreated MatchEventType = "SESSION_CREATED"
	MatchPlayerJoined   MatchEventType = "PLAYER_JOINED"
	MatchPlayerRejoined MatchEventType = "PLAYER_REJOINED"
	MatchPlayerLeft     MatchEventType = "PLAYER_LEFT"
	MatchRoleChanged    MatchEventType = "ROLE_CHANGED"
	MatchSessionStarted MatchEventType = "SESSION_STARTED"
	MatchCatchStarted   MatchEventType = "CATCH_STARTED"
	MatchCatchEnded     MatchEventType = "CATCH_ENDED"
	MatchPlayerCaught   MatchEventType = "PLAYER_CAUGHT"
	MatchItemPickedUp   MatchEventType = "ITEM_PICKED_UP"
	MatchItemDropped    MatchEventType = "ITEM_DROPPED"
	MatchItemUsed       MatchEventType = "ITEM_USED"
	MatchEffectExpired  MatchEventType = "EFFECT_EXPIRED"
	MatchSessionEnded   MatchEventType = "SESSION_ENDED"
)

// MatchEvent is an immutable record of a session transition. Location pings
// are deliberately not logged; only material state changes are.
type MatchEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      MatchEventType `json:"type"`
	ActorID   string         `json:"actor_id"`
	TargetID  string         `json:"target_id,omitempty"`
	Payload   any            `json:"payload,omitempty"`
}

// Persister defines how a match event is durably stored.
type Persister interface {
	Append(event MatchEvent) error
}

// MatchLog is the in-memory append-only log of match events, optionally
// written through to persistent storage.
type MatchLog struct {
	mu        sync.RWMutex
	events    []MatchEvent
	persister Persister
}

// NewMatchLog creates a match log with an optional persister.
func NewMatchLog(persister Persister) *MatchLog {
	return &MatchLog{
		events:    make([]MatchEvent, 0),
		persister: persister,
	}
}

// Append adds an event to the log. Events are immutable once appended.
// The persister write happens off the caller's goroutine so game handlers
// never block on storage.
func (ml *MatchLog) Append(event MatchEvent) {
	ml.mu.Lock()
	ml.events = append(ml.events, event)
	ml.mu.Unlock()

	if ml.persister != nil {
		go func(e MatchEvent) {
			_ = ml.persister.Append(e)
		}(event)
	}
}

// Record is a convenience wrapper that stamps id and timestamp.
func (ml *MatchLog) Record(sessionID string, t MatchEventType, actorID, targetID string, payload any) {
	ml.Append(MatchEvent{
		ID:        NewEventID(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Type:      t,
		ActorID:   actorID,
		TargetID:  targetID,
		Payload:   payload,
	})
}

// BySession returns all events recorded for one session, oldest first.
func (ml *MatchLog) BySession(sessionID string) []MatchEvent {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var result []MatchEvent
	for _, e := range ml.events {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history across all sessions.
func (ml *MatchLog) Replay() []MatchEvent {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	out := make([]MatchEvent, len(ml.events))
	copy(out, ml.events)
	return out
}

// NewEventID creates a unique event identifier.
func NewEventID() string {
	return uuid.New().String()
}
