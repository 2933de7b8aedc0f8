// Package events defines the engine's message contracts: the outbound
// payloads fanned out to clients and the append-only match log kept for
// auditing and replay.
package events

import (
	"github.com/pursuit-game/server/internal/domain/geo"
)

// Type names an outbound message on the wire.
type Type string

const (
	TypeGameInit          Type = "game-init"
	TypePlayerJoined      Type = "player-joined"
	TypePlayerReconnected Type = "player-reconnected"
	TypePlayerLeft        Type = "player-left"
	TypePlayerUpdated     Type = "player-updated"
	TypePlayerLocation    Type = "player-location"
	TypeBoundaryStatus    Type = "boundary-status"
	TypeSessionStarted    Type = "session-started"
	TypeSessionEnded      Type = "session-ended"
	TypeItemAdded         Type = "item-added"
	TypeItemRemoved       Type = "item-removed"
	TypeItemPickedUp      Type = "item-picked-up"
	TypeCatchStarted      Type = "catch-relationship-started"
	TypeCatchEnded        Type = "catch-relationship-ended"
	TypePlayerCaught      Type = "player-caught"
	TypeEffectStarted     Type = "effect-started"
	TypeEffectEnded       Type = "effect-ended"
	TypeError             Type = "error"
)

// Message is the envelope every outbound event travels in.
type Message struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload,omitempty"`
}

// PlayerInfo is the public view of a roster entry. Locations travel
// separately so role-scoped visibility stays in one place.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
	IsHost bool   `json:"is_host"`
}

// ItemInfo is the public view of an item on the map.
type ItemInfo struct {
	ID              string    `json:"id"`
	Location        geo.Point `json:"location"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Affinity        string    `json:"affinity"`
	Rarity          int       `json:"rarity"`
	DurationMinutes int       `json:"duration_minutes"`
}

// GameInit is sent to a player right after joining or reconnecting.
type GameInit struct {
	SessionID       string       `json:"session_id"`
	JoinCode        string       `json:"join_code"`
	Boundary        geo.Polygon  `json:"boundary"`
	MaxHunters      int          `json:"max_hunters"`
	MaxHunted       int          `json:"max_hunted"`
	DurationMinutes int          `json:"duration_minutes"`
	Phase           string       `json:"phase"`
	StartedAt       int64        `json:"started_at,omitempty"` // unix ms, zero before start
	You             PlayerInfo   `json:"you"`
	Roster          []PlayerInfo `json:"roster"`
	Items           []ItemInfo   `json:"items"`     // role-visible map pool
	Inventory       []ItemInfo   `json:"inventory"` // own held items
}

// PlayerLocation relays a teammate's (or a hunted player's) position.
type PlayerLocation struct {
	PlayerID  string  `json:"player_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	AccuracyM float64 `json:"accuracy"`
}

// BoundaryStatus is broadcast once per inside/outside transition. DistanceM
// is the distance to the nearest edge at the moment of the flip.
type BoundaryStatus struct {
	PlayerID  string  `json:"player_id"`
	Outside   bool    `json:"outside"`
	DistanceM float64 `json:"distance_m"`
}

// SessionStarted carries the authoritative match start timestamp.
type SessionStarted struct {
	StartedAt int64 `json:"started_at"` // unix ms
}

// SessionEnded declares the winner.
type SessionEnded struct {
	WinningRole string `json:"winning_role"`
}

// CatchLink identifies the other end of a catch relationship.
type CatchLink struct {
	PlayerID string `json:"player_id"`
}

// PlayerCaught announces a capture to the whole session.
type PlayerCaught struct {
	PlayerID string `json:"player_id"`
}

// ItemRef names an item without revealing its detail.
type ItemRef struct {
	ItemID string `json:"item_id"`
}

// EffectStarted notifies a recipient that a timed effect now applies to
// them. Data is effect-specific (nil for jam victims, scan pings for the
// drone operator).
type EffectStarted struct {
	ItemID          string `json:"item_id"`
	Code            string `json:"code"`
	Data            any    `json:"data,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

// EffectEnded revokes a previously delivered effect.
type EffectEnded struct {
	ItemID string `json:"item_id"`
}

// ScanPing is one blip on a drone search overlay; decoys are
// indistinguishable from real contacts.
type ScanPing struct {
	Point     geo.Point `json:"point"`
	Intensity int       `json:"intensity"`
}

// ErrorInfo is sent to a single client when a request is rejected with a
// reason (capacity and configuration failures; expected gameplay races are
// silently dropped instead).
type ErrorInfo struct {
	Reason string `json:"reason"`
}