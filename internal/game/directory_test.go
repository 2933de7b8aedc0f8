package game

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/platform/logger"
)

func validConfig() Config {
	return Config{
		Quota:           RoleQuota{Hunters: 2, Hunted: 4},
		Boundary:        squareAround(0.02),
		DurationMinutes: 45,
	}
}

func TestCreateRejectsBadConfig(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"too few vertices", func(c *Config) { c.Boundary = c.Boundary[:2] }, ErrInvalidBoundary},
		{"degenerate line", func(c *Config) {
			c.Boundary = geo.Polygon{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}}
		}, ErrInvalidBoundary},
		{"zero duration", func(c *Config) { c.DurationMinutes = 0 }, ErrInvalidDuration},
		{"negative duration", func(c *Config) { c.DurationMinutes = -5 }, ErrInvalidDuration},
		{"no hunters", func(c *Config) { c.Quota.Hunters = 0 }, ErrInvalidQuota},
		{"no hunted", func(c *Config) { c.Quota.Hunted = 0 }, ErrInvalidQuota},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if _, err := d.Create(cfg); err != tc.wantErr {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateEnforcesMaxArea(t *testing.T) {
	d := NewDirectory(&fakeBroadcaster{}, logger.NewLogger(), events.NewMatchLog(nil), nil, rand.New(rand.NewSource(7)), 1)

	cfg := validConfig() // a 0.02 degree square is roughly 5 square kilometers
	if _, err := d.Create(cfg); err != ErrBoundaryTooLarge {
		t.Errorf("got %v, want ErrBoundaryTooLarge", err)
	}

	cfg.Boundary = squareAround(0.005)
	if _, err := d.Create(cfg); err != nil {
		t.Errorf("small boundary rejected: %v", err)
	}
}

func TestJoinCodeShapeAndResolution(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	s, err := d.Create(validConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	code := s.JoinCode()
	if len(code) != JoinCodeLength {
		t.Fatalf("join code %q has length %d, want %d", code, len(code), JoinCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789", r) {
			t.Errorf("join code %q contains %q", code, r)
		}
	}

	got, err := d.Get("  " + strings.ToUpper(code) + " ")
	if err != nil || got != s {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}
	if _, err := d.Get("zzzzzz"); err != ErrUnknownSession {
		t.Errorf("unknown code: got %v, want ErrUnknownSession", err)
	}

	byID, err := d.GetByID(s.ID())
	if err != nil || byID != s {
		t.Errorf("id lookup failed: %v", err)
	}
}

func TestJoinCodesAreUnique(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		s, err := d.Create(validConfig())
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[s.JoinCode()] {
			t.Fatalf("duplicate join code %q", s.JoinCode())
		}
		seen[s.JoinCode()] = true
	}
	if d.Count() != 20 {
		t.Errorf("directory count = %d, want 20", d.Count())
	}
}

func TestEndedSessionRemovedAfterLastDisconnect(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	s, err := d.Create(validConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Join("p1", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Start("p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.finishByDuration()

	d.Disconnect(s, "p1")

	if d.Count() != 0 {
		t.Errorf("directory count = %d, want 0 after last disconnect from an ended session", d.Count())
	}
	if _, err := d.Get(s.JoinCode()); err != ErrUnknownSession {
		t.Errorf("ended session still resolvable: %v", err)
	}
}

func TestAbandonedLobbyRemovedAfterLastDisconnect(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	s, err := d.Create(validConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Join("p1", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Join("p2", "Ben"); err != nil {
		t.Fatalf("join: %v", err)
	}

	d.Disconnect(s, "p1")
	if d.Count() != 1 {
		t.Fatalf("lobby reclaimed while a player is still connected: count = %d", d.Count())
	}

	d.Disconnect(s, "p2")
	if d.Count() != 0 {
		t.Errorf("directory count = %d, want 0 after the lobby emptied", d.Count())
	}
	if _, err := d.Get(s.JoinCode()); err != ErrUnknownSession {
		t.Errorf("abandoned lobby still resolvable: %v", err)
	}
}

func TestActiveSessionSurvivesDisconnect(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	s, err := d.Create(validConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Join("p1", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Start("p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	d.Disconnect(s, "p1")

	if d.Count() != 1 {
		t.Errorf("active session reclaimed on disconnect: count = %d", d.Count())
	}
	if _, err := d.Get(s.JoinCode()); err != nil {
		t.Errorf("active session not resolvable for reconnect: %v", err)
	}
}

func TestVacantLobbyReclaimedAfterTimeout(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	s, err := d.Create(validConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The timer callback, fired directly: nobody ever joined.
	d.removeIfVacant(s)

	if d.Count() != 0 {
		t.Errorf("directory count = %d, want 0 for a never-joined lobby", d.Count())
	}
}

func TestOccupiedLobbySurvivesVacancyCheck(t *testing.T) {
	d := newTestDirectory(&fakeBroadcaster{})
	s, err := d.Create(validConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Join("p1", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}

	d.removeIfVacant(s)

	if d.Count() != 1 {
		t.Errorf("occupied lobby reclaimed by the vacancy check: count = %d", d.Count())
	}
}
