package game

import (
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
)

// Audience selects who receives a broadcast within one session. Single
// recipients are addressed through SendTo instead.
type Audience int

const (
	AudienceAll Audience = iota
	AudienceHunters
	AudienceHunted
)

// audienceFor maps a role to its role-scoped audience.
func audienceFor(role player.Role) Audience {
	if role == player.RoleHunter {
		return AudienceHunters
	}
	return AudienceHunted
}

// Broadcaster is the engine's outbound edge. Implementations must not block
// the caller: delivery is fire-and-forget relative to the state mutation
// that produced the message.
type Broadcaster interface {
	// Broadcast fans a message out to an audience within a session.
	Broadcast(sessionID string, aud Audience, msg events.Message)
	// SendTo delivers a message to a single player, if connected.
	SendTo(sessionID, playerID string, msg events.Message)
	// SetRole moves a player between role-scoped fan-out groups.
	SetRole(sessionID, playerID string, role player.Role)
}
