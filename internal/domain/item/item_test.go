package item

import (
	"math/rand"
	"testing"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
)

func TestGenerateRespectsAffinity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 50; i++ {
		it := Generate(rng, player.RoleHunted, geo.Point{Lat: 1, Lng: 2})
		if it == nil {
			t.Fatalf("Expected an item for the hunted catalog")
		}
		if it.Affinity != player.RoleHunted {
			t.Fatalf("Hunted roll produced affinity %s", it.Affinity)
		}
		if it.Code != CodeGPSJammer {
			t.Errorf("Hunted catalog only holds the GPS jammer, got %s", it.Code)
		}
	}

	it := Generate(rng, player.RoleHunter, geo.Point{})
	if it.Code != CodeDroneSearch {
		t.Errorf("Hunter catalog only holds the drone search, got %s", it.Code)
	}
}

func TestGenerateRarityAndDuration(t *testing.T) {
	rng := rand.New(rand.NewSource(23))

	for i := 0; i < 200; i++ {
		it := Generate(rng, player.RoleHunter, geo.Point{})

		if it.Rarity < it.BaseRarity || it.Rarity > 3 {
			t.Fatalf("Rarity %d out of range for base %d", it.Rarity, it.BaseRarity)
		}

		wantDuration := 5 * (it.Rarity - it.BaseRarity + 1)
		if it.DurationMinutes != wantDuration {
			t.Fatalf("Duration %d min, want %d for rarity %d", it.DurationMinutes, wantDuration, it.Rarity)
		}

		if it.Active() {
			t.Fatalf("Fresh items must not be active")
		}
	}
}

func TestGenerateUniqueIDs(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		it := Generate(rng, player.RoleHunted, geo.Point{})
		if seen[it.ID] {
			t.Fatalf("Duplicate item id %s", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestEffectRadiusTables(t *testing.T) {
	jam := &Item{Code: CodeGPSJammer, Rarity: 2}
	if jam.JamRadiusMeters() != 2000 {
		t.Errorf("Rarity 2 jammer radius = %.0f, want 2000", jam.JamRadiusMeters())
	}

	drone := &Item{Code: CodeDroneSearch, Rarity: 3}
	if drone.ScanRadiusMeters() != 2000 {
		t.Errorf("Rarity 3 drone scan radius = %.0f, want 2000", drone.ScanRadiusMeters())
	}
	if drone.DecoyCount() != 2 {
		t.Errorf("Rarity 3 drone decoy count = %d, want 2", drone.DecoyCount())
	}
	if drone.DecoyRadiusMeters() != 3000 {
		t.Errorf("Rarity 3 drone decoy radius = %.0f, want 3000", drone.DecoyRadiusMeters())
	}
}
