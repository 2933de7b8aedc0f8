// Package game contains the authoritative session engine: rosters, the
// catch mechanic, item effects and the session directory.
//
// ARCHITECTURAL RULE: every inbound event is an atomic unit against one
// session. Each handler takes the session mutex for its full read-modify-
// write; timers re-enter through the same mutex instead of mutating state
// from their own goroutine.
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/item"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/platform/logger"
)

// Phase is the one-way session lifecycle.
type Phase string

const (
	PhaseLobby  Phase = "lobby"
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
)

// Catch mechanic thresholds. Release uses the same threshold as
// establishment; the first-in-wins rule is what prevents flapping between
// competing hunters.
const (
	CatchRadiusMeters  = 400.0
	CatchReleaseMeters = 400.0
)

// RoleQuota caps each role set.
type RoleQuota struct {
	Hunters int `json:"hunters"`
	Hunted  int `json:"hunted"`
}

// Total is the roster cap.
func (q RoleQuota) Total() int { return q.Hunters + q.Hunted }

// Config is the session creation request.
type Config struct {
	Quota           RoleQuota
	Boundary        geo.Polygon
	DurationMinutes int
}

// MatchResult summarizes a finished session for persistence.
type MatchResult struct {
	SessionID   string
	JoinCode    string
	WinningRole player.Role
	StartedAt   time.Time
	EndedAt     time.Time
	Hunters     int
	Hunted      int
}

// Session owns one game: its roster, item pool, boundary and timers.
// All fields below the mutex are guarded by it.
type Session struct {
	id       string
	joinCode string

	mu        sync.Mutex
	boundary  geo.Polygon
	quota     RoleQuota
	duration  time.Duration
	phase     Phase
	startedAt time.Time

	players map[string]*player.Player
	hunters map[string]struct{}
	hunted  map[string]struct{}

	// connected tracks live connections separately from player status:
	// a caught player can stay connected to watch the rest of the match.
	connected map[string]struct{}

	pool    map[string]*item.Item // unclaimed, on the map
	held    map[string]*item.Item // claimed, inside some inventory
	effects map[string]*activeEffect

	endTimer *time.Timer

	bc       Broadcaster
	log      *logger.Logger
	matchLog *events.MatchLog
	rng      *rand.Rand
	onEnded  func(*Session, MatchResult)
}

// newSession builds a lobby-phase session and scatters its item pool over
// the boundary. Config validation happens in the directory before this.
func newSession(cfg Config, joinCode string, bc Broadcaster, log *logger.Logger, matchLog *events.MatchLog, rng *rand.Rand, onEnded func(*Session, MatchResult)) *Session {
	s := &Session{
		id:        uuid.New().String(),
		joinCode:  joinCode,
		boundary:  cfg.Boundary,
		quota:     cfg.Quota,
		duration:  time.Duration(cfg.DurationMinutes) * time.Minute,
		phase:     PhaseLobby,
		players:   make(map[string]*player.Player),
		hunters:   make(map[string]struct{}),
		hunted:    make(map[string]struct{}),
		connected: make(map[string]struct{}),
		pool:      make(map[string]*item.Item),
		held:      make(map[string]*item.Item),
		effects:   make(map[string]*activeEffect),
		bc:        bc,
		log:       log,
		matchLog:  matchLog,
		rng:       rng,
		onEnded:   onEnded,
	}

	// Items are placed up front so lobbies can already scout the map.
	// Alternating affinity splits the scatter roughly evenly per role.
	points := geo.PoissonDiscSample(rng, cfg.Boundary, geo.DefaultPoissonRadius, geo.DefaultPoissonAttempts)
	for i, pt := range points {
		affinity := player.RoleHunted
		if i%2 == 1 {
			affinity = player.RoleHunter
		}
		it := item.Generate(rng, affinity, pt)
		if it != nil {
			s.pool[it.ID] = it
		}
	}

	return s
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// JoinCode returns the human-typable code players join with.
func (s *Session) JoinCode() string { return s.joinCode }

// Phase returns the current lifecycle phase.
// ConnectionCount reports how many players are currently connected.
func (s *Session) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connected)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Join admits a new identity while the session is in the lobby, or
// reconnects a known identity at any point before the session ends.
// The returned snapshot initializes the joining client.
func (s *Session) Join(playerID, name string) (*events.GameInit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[playerID]; ok {
		if s.phase == PhaseEnded {
			return nil, ErrSessionEnded
		}
		if name != "" {
			p.Name = name
		}
		s.connected[playerID] = struct{}{}
		if p.MarkReconnected() {
			s.broadcastLocked(AudienceAll, events.Message{Type: events.TypePlayerReconnected, Payload: playerInfo(p)})
			s.matchLog.Record(s.id, events.MatchPlayerRejoined, playerID, "", nil)
			s.log.Event("PLAYER_REJOINED", playerID, "Session "+s.joinCode)
		}
		return s.gameInitLocked(p), nil
	}

	if s.phase != PhaseLobby {
		return nil, ErrSessionActive
	}
	if len(s.players) >= s.quota.Total() {
		return nil, ErrSessionFull
	}

	role := s.assignRoleLocked()
	p := player.New(playerID, name, role, len(s.players) == 0)
	s.players[playerID] = p
	s.roleSetLocked(role)[playerID] = struct{}{}
	s.connected[playerID] = struct{}{}

	s.broadcastLocked(AudienceAll, events.Message{Type: events.TypePlayerJoined, Payload: playerInfo(p)})
	s.matchLog.Record(s.id, events.MatchPlayerJoined, playerID, "", map[string]any{"role": string(role)})
	s.log.Event("PLAYER_JOINED", playerID, fmt.Sprintf("Session %s as %s", s.joinCode, role))

	return s.gameInitLocked(p), nil
}

// assignRoleLocked balances new joiners towards the smaller role set,
// deferring to quotas. Callers have already checked the roster cap, so at
// least one set has room.
func (s *Session) assignRoleLocked() player.Role {
	role := player.RoleHunted
	if len(s.hunted) > len(s.hunters) {
		role = player.RoleHunter
	}
	if len(s.roleSetLocked(role)) >= s.quotaFor(role) {
		role = role.Opposite()
	}
	return role
}

func (s *Session) roleSetLocked(role player.Role) map[string]struct{} {
	if role == player.RoleHunter {
		return s.hunters
	}
	return s.hunted
}

func (s *Session) quotaFor(role player.Role) int {
	if role == player.RoleHunter {
		return s.quota.Hunters
	}
	return s.quota.Hunted
}

// SetRolePreference requests a role for the player. The session arbitrates
// against quotas and returns the granted role, which may be the player's
// current one when the preferred set is full. Catch links involving the
// player do not survive an actual role change.
func (s *Session) SetRolePreference(playerID string, pref player.Role) player.Role {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return ""
	}
	if !pref.Valid() || s.phase == PhaseEnded || p.Status == player.StatusCaught {
		return p.Role
	}

	granted := pref
	if pref != p.Role && len(s.roleSetLocked(pref)) >= s.quotaFor(pref) {
		granted = p.Role
	}
	if granted == p.Role {
		return p.Role
	}

	// Invalidate any catch relationship before the player switches sides.
	if p.Role == player.RoleHunter && p.CatchingID != "" {
		s.releaseCatchLocked(p, s.players[p.CatchingID], true)
	}
	if p.Role == player.RoleHunted && p.CatcherID != "" {
		s.releaseCatchLocked(s.players[p.CatcherID], p, true)
	}

	delete(s.roleSetLocked(p.Role), playerID)
	p.Role = granted
	s.roleSetLocked(granted)[playerID] = struct{}{}
	s.bc.SetRole(s.id, playerID, granted)

	s.broadcastLocked(AudienceAll, events.Message{Type: events.TypePlayerUpdated, Payload: playerInfo(p)})
	s.matchLog.Record(s.id, events.MatchRoleChanged, playerID, "", map[string]any{"role": string(granted)})

	return granted
}

// UpdateLocation ingests a GPS fix: relays it to the allowed audience,
// emits boundary transitions, and refreshes the catch relationship. Caught
// players are ignored.
func (s *Session) UpdateLocation(playerID string, lat, lng, accuracy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || p.Status == player.StatusCaught {
		return
	}

	pt := geo.Point{Lat: lat, Lng: lng}
	p.Location = &player.Location{Point: pt, AccuracyM: accuracy, ReportedAt: time.Now()}

	// Hunter coordinates never reach the hunted side.
	audience := AudienceAll
	if p.Role == player.RoleHunter {
		audience = AudienceHunters
	}
	s.broadcastLocked(audience, events.Message{
		Type:    events.TypePlayerLocation,
		Payload: events.PlayerLocation{PlayerID: playerID, Lat: lat, Lng: lng, AccuracyM: accuracy},
	})

	outside := !s.boundary.Contains(pt)
	if outside != p.OutsideBoundary {
		p.OutsideBoundary = outside
		s.broadcastLocked(AudienceAll, events.Message{
			Type: events.TypeBoundaryStatus,
			Payload: events.BoundaryStatus{
				PlayerID:  playerID,
				Outside:   outside,
				DistanceM: s.boundary.DistanceToBoundary(pt),
			},
		})
	}

	if s.phase == PhaseActive && p.Status == player.StatusAlive {
		s.recomputeCatchLocked(p)
	}
}

// Start transitions Lobby -> Active. Host only.
func (s *Session) Start(actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[actorID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if s.phase != PhaseLobby {
		return ErrSessionActive
	}

	s.phase = PhaseActive
	s.startedAt = time.Now()
	s.endTimer = time.AfterFunc(s.duration, s.finishByDuration)

	s.broadcastLocked(AudienceAll, events.Message{
		Type:    events.TypeSessionStarted,
		Payload: events.SessionStarted{StartedAt: s.startedAt.UnixMilli()},
	})
	s.matchLog.Record(s.id, events.MatchSessionStarted, actorID, "", nil)
	s.log.Event("SESSION_STARTED", actorID, "Session "+s.joinCode)

	return nil
}

// finishByDuration fires when the match clock runs out: the hunted team
// survived.
func (s *Session) finishByDuration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return
	}
	s.endLocked(player.RoleHunted)
}

// endLocked closes the session and declares a winner. Idempotent.
func (s *Session) endLocked(winner player.Role) {
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}

	s.broadcastLocked(AudienceAll, events.Message{
		Type:    events.TypeSessionEnded,
		Payload: events.SessionEnded{WinningRole: string(winner)},
	})

	result := MatchResult{
		SessionID:   s.id,
		JoinCode:    s.joinCode,
		WinningRole: winner,
		StartedAt:   s.startedAt,
		EndedAt:     time.Now(),
		Hunters:     len(s.hunters),
		Hunted:      len(s.hunted),
	}
	s.matchLog.Record(s.id, events.MatchSessionEnded, "system", "", map[string]any{"winner": string(winner)})
	s.log.Event("SESSION_ENDED", "system", fmt.Sprintf("Session %s won by %s", s.joinCode, winner))

	if s.onEnded != nil {
		s.onEnded(s, result)
	}
}

// Disconnect drops a connection, releases the player's catch links and
// returns the number of connections still attached to the session.
func (s *Session) Disconnect(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return len(s.connected)
	}

	delete(s.connected, playerID)
	p.MarkDisconnected()

	if p.Role == player.RoleHunter && p.CatchingID != "" {
		s.releaseCatchLocked(p, s.players[p.CatchingID], true)
	}
	if p.Role == player.RoleHunted && p.CatcherID != "" {
		s.releaseCatchLocked(s.players[p.CatcherID], p, true)
	}

	s.broadcastLocked(AudienceAll, events.Message{Type: events.TypePlayerLeft, Payload: playerInfo(p)})
	s.matchLog.Record(s.id, events.MatchPlayerLeft, playerID, "", nil)
	s.log.Event("PLAYER_LEFT", playerID, "Session "+s.joinCode)

	return len(s.connected)
}

// aliveHuntedLocked counts hunted players that can still be caught.
func (s *Session) aliveHuntedLocked() int {
	n := 0
	for id := range s.hunted {
		if p := s.players[id]; p != nil && p.Status != player.StatusCaught {
			n++
		}
	}
	return n
}

// gameInitLocked snapshots the session for one joining player. The item
// pool is filtered to the player's role affinity.
func (s *Session) gameInitLocked(p *player.Player) *events.GameInit {
	init := &events.GameInit{
		SessionID:       s.id,
		JoinCode:        s.joinCode,
		Boundary:        s.boundary,
		MaxHunters:      s.quota.Hunters,
		MaxHunted:       s.quota.Hunted,
		DurationMinutes: int(s.duration / time.Minute),
		Phase:           string(s.phase),
		You:             playerInfo(p),
		Roster:          make([]events.PlayerInfo, 0, len(s.players)),
		Items:           make([]events.ItemInfo, 0),
		Inventory:       make([]events.ItemInfo, 0, len(p.Inventory)),
	}
	if !s.startedAt.IsZero() {
		init.StartedAt = s.startedAt.UnixMilli()
	}
	for _, other := range s.players {
		init.Roster = append(init.Roster, playerInfo(other))
	}
	for _, it := range s.pool {
		if it.Affinity == p.Role {
			init.Items = append(init.Items, itemInfo(it))
		}
	}
	for _, id := range p.Inventory {
		if it, ok := s.held[id]; ok {
			init.Inventory = append(init.Inventory, itemInfo(it))
		}
	}
	return init
}

func (s *Session) broadcastLocked(aud Audience, msg events.Message) {
	s.bc.Broadcast(s.id, aud, msg)
}

func playerInfo(p *player.Player) events.PlayerInfo {
	return events.PlayerInfo{
		ID:     p.ID,
		Name:   p.Name,
		Role:   string(p.Role),
		Status: string(p.Status),
		IsHost: p.IsHost,
	}
}

func itemInfo(it *item.Item) events.ItemInfo {
	return events.ItemInfo{
		ID:              it.ID,
		Location:        it.Location,
		Name:            it.Name,
		Code:            string(it.Code),
		Affinity:        string(it.Affinity),
		Rarity:          it.Rarity,
		DurationMinutes: it.DurationMinutes,
	}
}
