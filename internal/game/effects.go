package game

import (
	"time"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/item"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
)

// activeEffect tracks a running item effect so its expiry can revoke it
// from exactly the recipients that were notified. Effect timers are never
// cancelled; they become no-ops if the item or player is gone by then.
type activeEffect struct {
	item       *item.Item
	ownerID    string
	recipients []string
}

// Pickup moves an unclaimed, affinity-matching item from the map pool into
// the acting player's inventory. Races on already-claimed items no-op.
func (s *Session) Pickup(playerID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || p.Status != player.StatusAlive {
		return nil
	}
	it, ok := s.pool[itemID]
	if !ok || it.Affinity != p.Role {
		return nil
	}
	if !p.AddItem(itemID) {
		return ErrInventoryFull
	}

	delete(s.pool, itemID)
	s.held[itemID] = it

	s.bc.SendTo(s.id, playerID, events.Message{Type: events.TypeItemPickedUp, Payload: itemInfo(it)})
	s.broadcastLocked(audienceFor(it.Affinity), events.Message{Type: events.TypeItemRemoved, Payload: events.ItemRef{ItemID: itemID}})
	s.matchLog.Record(s.id, events.MatchItemPickedUp, playerID, itemID, nil)

	return nil
}

// Drop returns a held, inactive item to the map pool at the given spot.
func (s *Session) Drop(playerID, itemID string, at geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || p.Status != player.StatusAlive {
		return
	}
	it, ok := s.held[itemID]
	if !ok || it.Active() || !p.HoldsItem(itemID) {
		return
	}

	p.RemoveItem(itemID)
	delete(s.held, itemID)
	it.Location = at
	s.pool[itemID] = it

	s.bc.SendTo(s.id, playerID, events.Message{Type: events.TypeItemAdded, Payload: itemInfo(it)})
	s.broadcastLocked(audienceFor(it.Affinity), events.Message{Type: events.TypeItemAdded, Payload: itemInfo(it)})
	s.matchLog.Record(s.id, events.MatchItemDropped, playerID, itemID, nil)
}

// Use activates a held item's timed effect. Items are inert until the
// session is active, and single-use: once the window elapses the item is
// destroyed.
func (s *Session) Use(playerID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return
	}
	p, ok := s.players[playerID]
	if !ok || p.Status != player.StatusAlive || p.Location == nil {
		return
	}
	it, ok := s.held[itemID]
	if !ok || it.Active() || !p.HoldsItem(itemID) {
		return
	}

	now := time.Now()
	it.ActiveSince = &now

	var recipients []string
	switch it.Code {
	case item.CodeGPSJammer:
		recipients = s.startJamLocked(p, it)
	case item.CodeDroneSearch:
		recipients = s.startScanLocked(p, it)
	}

	s.effects[itemID] = &activeEffect{item: it, ownerID: playerID, recipients: recipients}
	time.AfterFunc(it.Duration(), func() { s.expireEffect(itemID) })

	s.matchLog.Record(s.id, events.MatchItemUsed, playerID, itemID, map[string]any{"code": string(it.Code)})
	s.log.Event("ITEM_USED", playerID, string(it.Code))
}

// startJamLocked notifies every hunter inside the jam radius that the
// jammer applies to them, plus the jamming player that it is running.
func (s *Session) startJamLocked(user *player.Player, it *item.Item) []string {
	started := events.Message{
		Type: events.TypeEffectStarted,
		Payload: events.EffectStarted{
			ItemID:          it.ID,
			Code:            string(it.Code),
			DurationMinutes: it.DurationMinutes,
		},
	}

	var recipients []string
	for id := range s.hunters {
		h := s.players[id]
		if h == nil || h.Location == nil {
			continue
		}
		if geo.Distance(h.Location.Point, user.Location.Point) < it.JamRadiusMeters() {
			s.bc.SendTo(s.id, id, started)
			recipients = append(recipients, id)
		}
	}
	s.bc.SendTo(s.id, user.ID, started)
	return recipients
}

// startScanLocked surfaces every hunted player inside the scan radius to
// the drone operator, mixes in decoy pings inside the boundary, and warns
// the spotted players.
func (s *Session) startScanLocked(user *player.Player, it *item.Item) []string {
	var recipients []string
	var pings []events.ScanPing

	for id := range s.hunted {
		t := s.players[id]
		if t == nil || t.Status != player.StatusAlive || t.Location == nil {
			continue
		}
		if geo.Distance(t.Location.Point, user.Location.Point) < it.ScanRadiusMeters() {
			pings = append(pings, events.ScanPing{Point: t.Location.Point, Intensity: 20 + s.rng.Intn(31)})
			recipients = append(recipients, id)
		}
	}

	for i := 0; i < it.DecoyCount(); i++ {
		decoy, ok := geo.RandomPointNear(s.rng, user.Location.Point, it.DecoyRadiusMeters(), s.boundary)
		if !ok {
			continue
		}
		pings = append(pings, events.ScanPing{Point: decoy, Intensity: 20 + s.rng.Intn(31)})
	}

	s.bc.SendTo(s.id, user.ID, events.Message{
		Type: events.TypeEffectStarted,
		Payload: events.EffectStarted{
			ItemID:          it.ID,
			Code:            string(it.Code),
			Data:            pings,
			DurationMinutes: it.DurationMinutes,
		},
	})

	spotted := events.Message{
		Type: events.TypeEffectStarted,
		Payload: events.EffectStarted{
			ItemID:          it.ID,
			Code:            string(it.Code) + "hunted",
			DurationMinutes: it.DurationMinutes,
		},
	}
	for _, id := range recipients {
		s.bc.SendTo(s.id, id, spotted)
	}

	return recipients
}

// expireEffect revokes a finished effect from everyone it was delivered to
// and destroys the item. Re-enters the session through the same mutex as
// every other handler.
func (s *Session) expireEffect(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eff, ok := s.effects[itemID]
	if !ok {
		return
	}
	delete(s.effects, itemID)

	ended := events.Message{Type: events.TypeEffectEnded, Payload: events.EffectEnded{ItemID: itemID}}
	for _, id := range eff.recipients {
		s.bc.SendTo(s.id, id, ended)
	}
	s.bc.SendTo(s.id, eff.ownerID, ended)

	if owner := s.players[eff.ownerID]; owner != nil {
		owner.RemoveItem(itemID)
	}
	delete(s.held, itemID)

	s.matchLog.Record(s.id, events.MatchEffectExpired, eff.ownerID, itemID, nil)
}
