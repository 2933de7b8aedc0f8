// Rebuilds per-player match statistics from the event log.
// State is a pure function of the recorded events.
package storage

import (
	"context"
	"fmt"

	"github.com/pursuit-game/server/internal/events"
)

// Recapper derives post-match summaries from the persisted event log.
// This is used for:
// 1. The match history endpoint - per-player stats after a session ends
// 2. Auditing and debugging a finished match
type Recapper struct {
	eventRepo MatchEventRepository
}

// NewRecapper creates a new match recapper.
func NewRecapper(eventRepo MatchEventRepository) *Recapper {
	return &Recapper{eventRepo: eventRepo}
}

// PlayerRecap holds the reconstructed statistics for one player.
type PlayerRecap struct {
	PlayerID    string `json:"player_id"`
	Catches     int    `json:"catches"`
	ItemsPicked int    `json:"items_picked"`
	ItemsUsed   int    `json:"items_used"`
	WasCaught   bool   `json:"was_caught"`
	Rejoins     int    `json:"rejoins"`
}

// MatchRecap is the full derived summary of one session.
type MatchRecap struct {
	SessionID string        `json:"session_id"`
	Events    int           `json:"events"`
	Players   []PlayerRecap `json:"players"`
}

// Build reconstructs a session's recap from its event log.
func (r *Recapper) Build(ctx context.Context, sessionID string) (*MatchRecap, error) {
	log, err := r.eventRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match events: %w", err)
	}

	byPlayer := make(map[string]*PlayerRecap)
	lookup := func(id string) *PlayerRecap {
		if id == "" || id == "system" {
			return nil
		}
		p, ok := byPlayer[id]
		if !ok {
			p = &PlayerRecap{PlayerID: id}
			byPlayer[id] = p
		}
		return p
	}

	for _, e := range log {
		switch events.MatchEventType(e.EventType) {
		case events.MatchPlayerCaught:
			if actor := lookup(e.ActorID); actor != nil {
				actor.Catches++
			}
			if target := lookup(e.TargetID); target != nil {
				target.WasCaught = true
			}
		case events.MatchItemPickedUp:
			if actor := lookup(e.ActorID); actor != nil {
				actor.ItemsPicked++
			}
		case events.MatchItemUsed:
			if actor := lookup(e.ActorID); actor != nil {
				actor.ItemsUsed++
			}
		case events.MatchPlayerRejoined:
			if actor := lookup(e.ActorID); actor != nil {
				actor.Rejoins++
			}
		case events.MatchPlayerJoined:
			lookup(e.ActorID)
		}
	}

	recap := &MatchRecap{SessionID: sessionID, Events: len(log)}
	for _, p := range byPlayer {
		recap.Players = append(recap.Players, *p)
	}
	return recap, nil
}
