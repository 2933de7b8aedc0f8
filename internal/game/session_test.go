package game

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/platform/logger"
)

// fakeBroadcaster records outbound traffic for assertions.
type fakeBroadcaster struct {
	mu         sync.Mutex
	broadcasts []recordedBroadcast
	direct     []recordedDirect
}

type recordedBroadcast struct {
	aud Audience
	msg events.Message
}

type recordedDirect struct {
	playerID string
	msg      events.Message
}

func (f *fakeBroadcaster) Broadcast(sessionID string, aud Audience, msg events.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, recordedBroadcast{aud: aud, msg: msg})
}

func (f *fakeBroadcaster) SendTo(sessionID, playerID string, msg events.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, recordedDirect{playerID: playerID, msg: msg})
}

func (f *fakeBroadcaster) SetRole(sessionID, playerID string, role player.Role) {}

func (f *fakeBroadcaster) broadcastsOf(t events.Type) []recordedBroadcast {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedBroadcast
	for _, b := range f.broadcasts {
		if b.msg.Type == t {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeBroadcaster) directTo(playerID string, t events.Type) []events.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Message
	for _, d := range f.direct {
		if d.playerID == playerID && d.msg.Type == t {
			out = append(out, d.msg)
		}
	}
	return out
}

// squareAround builds a square boundary of the given side length in
// degrees, centered on the origin.
func squareAround(sideDeg float64) geo.Polygon {
	h := sideDeg / 2
	return geo.Polygon{
		{Lat: -h, Lng: -h},
		{Lat: h, Lng: -h},
		{Lat: h, Lng: h},
		{Lat: -h, Lng: h},
	}
}

func newTestDirectory(bc Broadcaster) *Directory {
	return NewDirectory(bc, logger.NewLogger(), events.NewMatchLog(nil), nil, rand.New(rand.NewSource(42)), 0)
}

func newTestSession(t *testing.T, bc Broadcaster, quota RoleQuota) *Session {
	t.Helper()
	d := newTestDirectory(bc)
	s, err := d.Create(Config{
		Quota:           quota,
		Boundary:        squareAround(0.02),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func mustJoin(t *testing.T, s *Session, id, name string) *events.GameInit {
	t.Helper()
	init, err := s.Join(id, name)
	if err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
	return init
}

func TestJoinBalancesRolesAndPicksHost(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestSession(t, bc, RoleQuota{Hunters: 2, Hunted: 2})

	first := mustJoin(t, s, "p1", "Ada")
	mustJoin(t, s, "p2", "Ben")
	mustJoin(t, s, "p3", "Cy")
	mustJoin(t, s, "p4", "Di")

	if !first.You.IsHost {
		t.Error("first joiner should be host")
	}
	if len(s.hunters) != 2 || len(s.hunted) != 2 {
		t.Errorf("expected a 2/2 split, got %d hunters and %d hunted", len(s.hunters), len(s.hunted))
	}
	if got := len(bc.broadcastsOf(events.TypePlayerJoined)); got != 4 {
		t.Errorf("expected 4 player-joined broadcasts, got %d", got)
	}
}

func TestJoinRejectsBeyondQuota(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 1, Hunted: 1})

	mustJoin(t, s, "p1", "Ada")
	mustJoin(t, s, "p2", "Ben")

	if _, err := s.Join("p3", "Cy"); err != ErrSessionFull {
		t.Errorf("expected ErrSessionFull, got %v", err)
	}
}

func TestJoinAfterStartOnlyReconnects(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 2, Hunted: 2})
	mustJoin(t, s, "p1", "Ada")
	mustJoin(t, s, "p2", "Ben")

	if err := s.Start("p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := s.Join("p3", "Cy"); err != ErrSessionActive {
		t.Errorf("new join after start: expected ErrSessionActive, got %v", err)
	}

	s.Disconnect("p2")
	init, err := s.Join("p2", "")
	if err != nil {
		t.Fatalf("reconnect after start: %v", err)
	}
	if init.Phase != string(PhaseActive) {
		t.Errorf("reconnect snapshot phase = %q, want active", init.Phase)
	}
}

func TestRoleSetsPartitionRoster(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 3, Hunted: 3})
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		mustJoin(t, s, id, id)
	}

	s.SetRolePreference("p3", player.RoleHunter)
	s.SetRolePreference("p1", player.RoleHunted)
	s.Disconnect("p5")

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.hunters)+len(s.hunted) != len(s.players) {
		t.Errorf("role sets do not partition the roster: %d + %d != %d",
			len(s.hunters), len(s.hunted), len(s.players))
	}
	for id := range s.hunters {
		if _, dup := s.hunted[id]; dup {
			t.Errorf("player %s is in both role sets", id)
		}
	}
}

func TestSetRolePreferenceHonorsQuota(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 1, Hunted: 2})
	mustJoin(t, s, "p1", "Ada") // seated hunted
	mustJoin(t, s, "p2", "Ben") // seated hunter

	// The only hunter slot is taken; the preference cannot be granted.
	got := s.SetRolePreference("p1", player.RoleHunter)
	if got != player.RoleHunted {
		t.Errorf("granted role = %s, want hunted (quota full)", got)
	}
}

func TestStartRequiresHost(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 2, Hunted: 2})
	mustJoin(t, s, "p1", "Ada")
	mustJoin(t, s, "p2", "Ben")

	if err := s.Start("p2"); err != ErrNotHost {
		t.Errorf("non-host start: expected ErrNotHost, got %v", err)
	}
	if err := s.Start("p1"); err != nil {
		t.Fatalf("host start: %v", err)
	}
	if err := s.Start("p1"); err != ErrSessionActive {
		t.Errorf("double start: expected ErrSessionActive, got %v", err)
	}
}

func TestDurationExpiryEndsWithHuntedWin(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestSession(t, bc, RoleQuota{Hunters: 1, Hunted: 1})
	mustJoin(t, s, "p1", "Ada")
	mustJoin(t, s, "p2", "Ben")
	if err := s.Start("p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.finishByDuration()

	if s.Phase() != PhaseEnded {
		t.Fatalf("phase = %s, want ended", s.Phase())
	}
	ends := bc.broadcastsOf(events.TypeSessionEnded)
	if len(ends) != 1 {
		t.Fatalf("expected 1 session-ended broadcast, got %d", len(ends))
	}
	payload := ends[0].msg.Payload.(events.SessionEnded)
	if payload.WinningRole != string(player.RoleHunted) {
		t.Errorf("winner = %s, want hunted", payload.WinningRole)
	}

	// A second expiry must not end the session again.
	s.finishByDuration()
	if got := len(bc.broadcastsOf(events.TypeSessionEnded)); got != 1 {
		t.Errorf("session ended twice: %d broadcasts", got)
	}
}

func TestGameInitFiltersPoolByAffinity(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 2, Hunted: 2})
	init := mustJoin(t, s, "p1", "Ada")

	for _, it := range init.Items {
		if it.Affinity != init.You.Role {
			t.Errorf("item %s has affinity %s, visible to a %s", it.ID, it.Affinity, init.You.Role)
		}
	}
}

func TestBoundaryTransitionBroadcastOncePerFlip(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestSession(t, bc, RoleQuota{Hunters: 1, Hunted: 1})
	mustJoin(t, s, "p1", "Ada")

	s.UpdateLocation("p1", 0, 0, 5)       // inside
	s.UpdateLocation("p1", 0.001, 0, 5)   // still inside
	s.UpdateLocation("p1", 0.5, 0.5, 5)   // outside
	s.UpdateLocation("p1", 0.6, 0.6, 5)   // still outside
	s.UpdateLocation("p1", 0, 0, 5)       // back inside

	transitions := bc.broadcastsOf(events.TypeBoundaryStatus)
	if len(transitions) != 2 {
		t.Fatalf("expected 2 boundary-status broadcasts, got %d", len(transitions))
	}
	if first := transitions[0].msg.Payload.(events.BoundaryStatus); !first.Outside {
		t.Error("first transition should report outside=true")
	}
	if second := transitions[1].msg.Payload.(events.BoundaryStatus); second.Outside {
		t.Error("second transition should report outside=false")
	}
}

func TestHunterLocationsStayOnHunterAudience(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestSession(t, bc, RoleQuota{Hunters: 1, Hunted: 1})
	mustJoin(t, s, "p1", "Ada") // balancer seats the first joiner as hunted
	mustJoin(t, s, "p2", "Ben") // and the second as hunter

	s.UpdateLocation("p1", 0.001, 0.001, 5)
	s.UpdateLocation("p2", 0.002, 0.002, 5)

	for _, b := range bc.broadcastsOf(events.TypePlayerLocation) {
		loc := b.msg.Payload.(events.PlayerLocation)
		switch loc.PlayerID {
		case "p2":
			if b.aud != AudienceHunters {
				t.Errorf("hunter location relayed to audience %q", b.aud)
			}
		case "p1":
			if b.aud != AudienceAll {
				t.Errorf("hunted location relayed to audience %q", b.aud)
			}
		}
	}
}

func TestPickupClaimsAndHidesItem(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestSession(t, bc, RoleQuota{Hunters: 2, Hunted: 2})
	init := mustJoin(t, s, "p1", "Ada")
	if len(init.Items) == 0 {
		t.Fatal("expected a seeded item pool")
	}
	itemID := init.Items[0].ID

	if err := s.Pickup("p1", itemID); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	s.mu.Lock()
	_, inPool := s.pool[itemID]
	_, inHeld := s.held[itemID]
	holds := s.players["p1"].HoldsItem(itemID)
	s.mu.Unlock()
	if inPool || !inHeld || !holds {
		t.Errorf("pickup state: inPool=%v inHeld=%v holds=%v", inPool, inHeld, holds)
	}
	if got := len(bc.directTo("p1", events.TypeItemPickedUp)); got != 1 {
		t.Errorf("expected 1 item-picked-up confirmation, got %d", got)
	}

	// Same item again silently no-ops for everyone, including the owner.
	mustJoin(t, s, "p2", "Ben")
	s.SetRolePreference("p2", player.Role(init.You.Role))
	if err := s.Pickup("p2", itemID); err != nil {
		t.Errorf("pickup of claimed item should no-op, got %v", err)
	}
	if err := s.Pickup("p1", itemID); err != nil {
		t.Errorf("repeat pickup should no-op, got %v", err)
	}
}

func TestPickupEnforcesInventoryCap(t *testing.T) {
	s := newTestSession(t, &fakeBroadcaster{}, RoleQuota{Hunters: 4, Hunted: 4})
	init := mustJoin(t, s, "p1", "Ada")

	var mine []string
	for _, it := range init.Items {
		mine = append(mine, it.ID)
	}
	if len(mine) <= player.InventoryCap {
		t.Skipf("pool too small to exercise the cap: %d items", len(mine))
	}

	for i := 0; i < player.InventoryCap; i++ {
		if err := s.Pickup("p1", mine[i]); err != nil {
			t.Fatalf("pickup %d: %v", i, err)
		}
	}
	if err := s.Pickup("p1", mine[player.InventoryCap]); err != ErrInventoryFull {
		t.Errorf("expected ErrInventoryFull, got %v", err)
	}
}

func TestDropReturnsItemToPool(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestSession(t, bc, RoleQuota{Hunters: 2, Hunted: 2})
	init := mustJoin(t, s, "p1", "Ada")
	itemID := init.Items[0].ID
	if err := s.Pickup("p1", itemID); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	spot := geo.Point{Lat: 0.001, Lng: 0.001}
	s.Drop("p1", itemID, spot)

	s.mu.Lock()
	it, inPool := s.pool[itemID]
	holds := s.players["p1"].HoldsItem(itemID)
	s.mu.Unlock()
	if !inPool || holds {
		t.Fatalf("drop state: inPool=%v holds=%v", inPool, holds)
	}
	if it.Location != spot {
		t.Errorf("dropped item location = %v, want %v", it.Location, spot)
	}
}
