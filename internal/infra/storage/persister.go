package storage

import (
	"context"
	"time"

	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/game"
	"github.com/pursuit-game/server/internal/platform/metrics"
)

// persistTimeout bounds every write issued from the game path.
const persistTimeout = 5 * time.Second

// MatchEventPersister adapts a MatchEventRepository to the match log's
// write-through interface.
type MatchEventPersister struct {
	repo MatchEventRepository
}

func NewMatchEventPersister(repo MatchEventRepository) *MatchEventPersister {
	return &MatchEventPersister{repo: repo}
}

// Append implements events.Persister. The write-through path is also where
// the gameplay counters are bumped, so the pure game package never sees the
// metrics collector.
func (p *MatchEventPersister) Append(event events.MatchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	start := time.Now()
	err := p.repo.Append(ctx, toRecord(event))
	metrics.Get().RecordEventWrite(time.Since(start), err)

	switch event.Type {
	case events.MatchSessionCreated:
		metrics.Get().RecordSessionCreated()
	case events.MatchSessionEnded:
		metrics.Get().RecordSessionEnded()
	case events.MatchPlayerJoined:
		metrics.Get().RecordPlayerJoined()
	case events.MatchPlayerCaught:
		metrics.Get().RecordCatch()
	case events.MatchItemUsed:
		metrics.Get().RecordItemUsed()
	}

	return err
}

func toRecord(e events.MatchEvent) MatchEventRecord {
	var payload map[string]any
	if m, ok := e.Payload.(map[string]any); ok {
		payload = m
	}
	return MatchEventRecord{
		ID:        e.ID,
		SessionID: e.SessionID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Payload:   payload,
	}
}

// ResultStore adapts a ResultRepository to the directory's end-of-match
// callback.
type ResultStore struct {
	repo ResultRepository
}

func NewResultStore(repo ResultRepository) *ResultStore {
	return &ResultStore{repo: repo}
}

// RecordResult implements game.ResultRecorder.
func (s *ResultStore) RecordResult(result game.MatchResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return s.repo.Insert(ctx, MatchResultRecord{
		SessionID:   result.SessionID,
		JoinCode:    result.JoinCode,
		WinningRole: string(result.WinningRole),
		StartedAt:   result.StartedAt,
		EndedAt:     result.EndedAt,
		Hunters:     result.Hunters,
		Hunted:      result.Hunted,
	})
}
