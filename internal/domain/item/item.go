// Package item defines the pickup entities scattered over the play area and
// the weighted tables that generate them.
// This package is PURE and must NOT import any infrastructure packages.
package item

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
)

// Code identifies an item's effect family on the wire.
type Code string

const (
	CodeGPSJammer   Code = "gpsj" // hunted: suppress own position for nearby hunters
	CodeDroneSearch Code = "drse" // hunter: reveal nearby hunted positions + decoys
)

// Definition is the static template an item is rolled from.
type Definition struct {
	Name         string
	Code         Code
	Affinity     player.Role
	BaseRarity   int
	BaseDuration int // minutes, at base rarity
}

// Catalog lists the rollable item templates per role affinity.
var Catalog = map[player.Role][]Definition{
	player.RoleHunted: {
		{Name: "GPS Jammer", Code: CodeGPSJammer, Affinity: player.RoleHunted, BaseRarity: 1, BaseDuration: 5},
	},
	player.RoleHunter: {
		{Name: "Drone Search", Code: CodeDroneSearch, Affinity: player.RoleHunter, BaseRarity: 2, BaseDuration: 5},
	},
}

// rarityTable skews rolls towards common items: P(1)=9/13, P(2)=3/13,
// P(3)=1/13. Entries below a template's base rarity are filtered out before
// rolling.
var rarityTable = []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 3}

// Item is a concrete pickup. At any moment it is owned by exactly one of the
// session's map pool or a single player's inventory.
type Item struct {
	ID       string      `json:"id"`
	Location geo.Point   `json:"location"`
	Name     string      `json:"name"`
	Code     Code        `json:"code"`
	Affinity player.Role `json:"affinity"`

	Rarity          int `json:"rarity"`
	BaseRarity      int `json:"base_rarity"`
	DurationMinutes int `json:"duration_minutes"`

	// ActiveSince is set when the effect is triggered and never cleared:
	// the item ceases to exist when the effect window elapses.
	ActiveSince *time.Time `json:"active_since,omitempty"`
}

// Generate rolls a new item for the given role affinity at the given spot.
// Template choice is weighted so lower-rarity templates are more common
// (weight 10 - 3*baseRarity, clamped to at least 1), then a final rarity is
// rolled from the skewed table and the duration scales with the rarity
// upgrade: baseDuration * (rarity - baseRarity + 1).
func Generate(rng *rand.Rand, affinity player.Role, at geo.Point) *Item {
	templates := Catalog[affinity]
	if len(templates) == 0 {
		return nil
	}

	var weighted []Definition
	for _, def := range templates {
		weight := 10 - def.BaseRarity*3
		if weight < 1 {
			weight = 1
		}
		for i := 0; i < weight; i++ {
			weighted = append(weighted, def)
		}
	}
	def := weighted[rng.Intn(len(weighted))]

	var rarities []int
	for _, r := range rarityTable {
		if r >= def.BaseRarity {
			rarities = append(rarities, r)
		}
	}
	rarity := rarities[rng.Intn(len(rarities))]

	return &Item{
		ID:              uuid.New().String(),
		Location:        at,
		Name:            def.Name,
		Code:            def.Code,
		Affinity:        def.Affinity,
		Rarity:          rarity,
		BaseRarity:      def.BaseRarity,
		DurationMinutes: def.BaseDuration * (rarity - def.BaseRarity + 1),
	}
}

// Active reports whether the item's effect is currently running.
func (it *Item) Active() bool {
	return it.ActiveSince != nil
}

// Duration returns the effect window as a time.Duration.
func (it *Item) Duration() time.Duration {
	return time.Duration(it.DurationMinutes) * time.Minute
}

// Effect radius tables, indexed by rarity.

// JamRadiusMeters is how far a GPS jammer reaches, per rarity 1..3.
func (it *Item) JamRadiusMeters() float64 {
	return [...]float64{1000, 2000, 3000}[clampIndex(it.Rarity-1, 3)]
}

// ScanRadiusMeters is how far a drone search sees, per rarity 2..3.
func (it *Item) ScanRadiusMeters() float64 {
	return [...]float64{1000, 2000}[clampIndex(it.Rarity-2, 2)]
}

// DecoyRadiusMeters bounds where drone search decoy pings are scattered.
func (it *Item) DecoyRadiusMeters() float64 {
	return [...]float64{2000, 3000}[clampIndex(it.Rarity-2, 2)]
}

// DecoyCount is how many false pings a drone search mixes in. Rarer drones
// are more precise and produce fewer decoys.
func (it *Item) DecoyCount() int {
	return [...]int{4, 2}[clampIndex(it.Rarity-2, 2)]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
