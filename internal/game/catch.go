package game

import (
	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
)

// The catch relationship is an edge from a hunter to the hunted player it
// is in range of. Edges are stored as identifiers on both players; the
// hunter side owns the edge and the hunted side carries the back-reference.
// A hunted player has at most one catcher: whoever got in range first keeps
// the edge until it is explicitly released.

// recomputeCatchLocked refreshes the mover's side of the relationship graph
// after a location change.
func (s *Session) recomputeCatchLocked(mover *player.Player) {
	if mover.Role == player.RoleHunter {
		s.refreshHunterLocked(mover)
	} else {
		s.refreshHuntedLocked(mover)
	}
}

func (s *Session) refreshHunterLocked(h *player.Player) {
	if h.CatchingID != "" {
		target := s.players[h.CatchingID]
		if !s.linkStillValidLocked(h, target) {
			s.releaseCatchLocked(h, target, true)
		}
	}

	if h.CatchingID != "" || h.Location == nil {
		return
	}
	if best := s.nearestCatchableLocked(h); best != nil {
		s.establishCatchLocked(h, best)
	}
}

func (s *Session) refreshHuntedLocked(t *player.Player) {
	if t.CatcherID != "" {
		hunter := s.players[t.CatcherID]
		if !s.linkStillValidLocked(hunter, t) {
			s.releaseCatchLocked(hunter, t, true)
		}
	}

	if t.CatcherID != "" || t.Location == nil {
		return
	}
	if hunter := s.nearestFreeHunterLocked(t); hunter != nil {
		s.establishCatchLocked(hunter, t)
	}
}

// linkStillValidLocked checks release conditions: either side gone, caught,
// role-switched, location lost, or out of the release range.
func (s *Session) linkStillValidLocked(h, t *player.Player) bool {
	if h == nil || t == nil {
		return false
	}
	if h.Status != player.StatusAlive || t.Status != player.StatusAlive {
		return false
	}
	if h.Role != player.RoleHunter || t.Role != player.RoleHunted {
		return false
	}
	if h.Location == nil || t.Location == nil {
		return false
	}
	return geo.Distance(h.Location.Point, t.Location.Point) <= CatchReleaseMeters
}

// nearestCatchableLocked finds the closest alive hunted player within catch
// range that nobody is catching yet.
func (s *Session) nearestCatchableLocked(h *player.Player) *player.Player {
	var best *player.Player
	bestDist := CatchRadiusMeters
	for id := range s.hunted {
		t := s.players[id]
		if t == nil || t.Status != player.StatusAlive || t.Location == nil || t.CatcherID != "" {
			continue
		}
		if d := geo.Distance(h.Location.Point, t.Location.Point); d <= bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// nearestFreeHunterLocked finds the closest alive hunter within catch range
// that is not already catching someone.
func (s *Session) nearestFreeHunterLocked(t *player.Player) *player.Player {
	var best *player.Player
	bestDist := CatchRadiusMeters
	for id := range s.hunters {
		h := s.players[id]
		if h == nil || h.Status != player.StatusAlive || h.Location == nil || h.CatchingID != "" {
			continue
		}
		if d := geo.Distance(h.Location.Point, t.Location.Point); d <= bestDist {
			best, bestDist = h, d
		}
	}
	return best
}

func (s *Session) establishCatchLocked(h, t *player.Player) {
	h.CatchingID = t.ID
	t.CatcherID = h.ID

	s.bc.SendTo(s.id, h.ID, events.Message{Type: events.TypeCatchStarted, Payload: events.CatchLink{PlayerID: t.ID}})
	s.bc.SendTo(s.id, t.ID, events.Message{Type: events.TypeCatchStarted, Payload: events.CatchLink{PlayerID: h.ID}})
	s.matchLog.Record(s.id, events.MatchCatchStarted, h.ID, t.ID, nil)
	s.log.Event("CATCH_STARTED", h.ID, "In range of "+t.ID)
}

// releaseCatchLocked tears down an edge from whichever side still holds it.
// Either player may already be gone.
func (s *Session) releaseCatchLocked(h, t *player.Player, notify bool) {
	var hunterID, huntedID string
	if h != nil {
		hunterID = h.ID
		huntedID = h.CatchingID
		h.ClearCatchLinks()
	}
	if t != nil {
		huntedID = t.ID
		if hunterID == "" {
			hunterID = t.CatcherID
		}
		t.ClearCatchLinks()
	}
	if hunterID == "" && huntedID == "" {
		return
	}

	if notify {
		if h != nil {
			s.bc.SendTo(s.id, h.ID, events.Message{Type: events.TypeCatchEnded, Payload: events.CatchLink{PlayerID: huntedID}})
		}
		if t != nil {
			s.bc.SendTo(s.id, t.ID, events.Message{Type: events.TypeCatchEnded, Payload: events.CatchLink{PlayerID: hunterID}})
		}
	}
	s.matchLog.Record(s.id, events.MatchCatchEnded, hunterID, huntedID, nil)
}

// AttemptCatch resolves an explicit catch action from a hunter. The session
// validates the relationship is still live; stale attempts from lagging
// clients no-op silently.
func (s *Session) AttemptCatch(hunterID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return
	}
	h := s.players[hunterID]
	t := s.players[targetID]
	if h == nil || t == nil {
		return
	}
	if h.Role != player.RoleHunter || h.Status != player.StatusAlive {
		return
	}
	if h.CatchingID != targetID || t.CatcherID != hunterID {
		return
	}
	if !t.MarkCaught() {
		return
	}

	s.releaseCatchLocked(h, t, true)

	s.broadcastLocked(AudienceAll, events.Message{Type: events.TypePlayerCaught, Payload: events.PlayerCaught{PlayerID: targetID}})
	s.broadcastLocked(AudienceAll, events.Message{Type: events.TypePlayerUpdated, Payload: playerInfo(t)})
	s.matchLog.Record(s.id, events.MatchPlayerCaught, hunterID, targetID, nil)
	s.log.Event("PLAYER_CAUGHT", hunterID, "Caught "+targetID)

	if s.aliveHuntedLocked() == 0 {
		s.endLocked(player.RoleHunter)
	}
}
