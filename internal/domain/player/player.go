// Package player defines the core domain entity for a game participant.
// This package is PURE and must NOT import any infrastructure packages.
package player

import (
	"time"

	"github.com/pursuit-game/server/internal/domain/geo"
)

// Role partitions the roster into pursuers and evaders.
type Role string

const (
	RoleHunter Role = "hunter"
	RoleHunted Role = "hunted"
)

// Opposite returns the other role.
func (r Role) Opposite() Role {
	if r == RoleHunter {
		return RoleHunted
	}
	return RoleHunter
}

// Valid reports whether r is one of the two playable roles.
func (r Role) Valid() bool {
	return r == RoleHunter || r == RoleHunted
}

// Status is the lifecycle state of a player within a session.
type Status string

const (
	StatusAlive        Status = "alive"
	StatusCaught       Status = "caught" // terminal
	StatusDisconnected Status = "disconnected"
)

// InventoryCap bounds how many items a player can hold.
const InventoryCap = 6

// Location is the last reported GPS fix of a player.
type Location struct {
	geo.Point
	AccuracyM  float64   `json:"accuracy"`
	ReportedAt time.Time `json:"reported_at"`
}

// Player represents a participant. It is owned exclusively by its session;
// all mutation happens under the session's lock. Catch links and inventory
// are held as identifiers into the session's tables, never as object
// references.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`
	IsHost bool   `json:"is_host"`

	Location        *Location `json:"location,omitempty"`
	OutsideBoundary bool      `json:"outside_boundary"`

	// CatchingID is set on a hunter: the hunted player it is in range of.
	// CatcherID is the back-reference on a hunted player. At most one of
	// each; first hunter in range wins until released.
	CatchingID string `json:"-"`
	CatcherID  string `json:"-"`

	// Inventory holds item identifiers in pickup order.
	Inventory []string `json:"inventory"`
}

// New creates a live player. The first player to join a session is its host.
func New(id, name string, role Role, isHost bool) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Role:      role,
		Status:    StatusAlive,
		IsHost:    isHost,
		Inventory: make([]string, 0, InventoryCap),
	}
}

// MarkCaught transitions the player to Caught. Returns false if the player
// was not alive: Caught is one-shot and terminal.
func (p *Player) MarkCaught() bool {
	if p.Status != StatusAlive {
		return false
	}
	p.Status = StatusCaught
	return true
}

// MarkDisconnected records a dropped connection. Caught players stay caught.
func (p *Player) MarkDisconnected() {
	if p.Status == StatusAlive {
		p.Status = StatusDisconnected
	}
}

// MarkReconnected restores a disconnected player to Alive. Returns false if
// the player was not disconnected.
func (p *Player) MarkReconnected() bool {
	if p.Status != StatusDisconnected {
		return false
	}
	p.Status = StatusAlive
	return true
}

// HoldsItem reports whether the item id is in the player's inventory.
func (p *Player) HoldsItem(itemID string) bool {
	for _, id := range p.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}

// AddItem appends an item id to the inventory. Returns false when the
// inventory is at capacity.
func (p *Player) AddItem(itemID string) bool {
	if len(p.Inventory) >= InventoryCap {
		return false
	}
	p.Inventory = append(p.Inventory, itemID)
	return true
}

// RemoveItem drops an item id from the inventory, preserving order.
// Returns false if the item was not held.
func (p *Player) RemoveItem(itemID string) bool {
	for i, id := range p.Inventory {
		if id == itemID {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCatchLinks drops both directions of any catch relationship.
func (p *Player) ClearCatchLinks() {
	p.CatchingID = ""
	p.CatcherID = ""
}
