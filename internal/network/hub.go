package network

import (
	"encoding/json"
	"sync"

	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/game"
	"github.com/pursuit-game/server/internal/platform/logger"
	"github.com/pursuit-game/server/internal/platform/metrics"
)

// Hub maintains the set of active clients grouped by session, and fans
// outbound messages to the right audience. It implements game.Broadcaster.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*Client]bool
	logger *logger.Logger
}

// NewHub initializes a new WebSocket Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]bool),
		logger: log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.sessionID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[c.sessionID] = room
	}
	// A reconnect replaces the previous connection for the same identity.
	for other := range room {
		if other.playerID == c.playerID {
			delete(room, other)
			close(other.send)
		}
	}
	room[c] = true
	h.mu.Unlock()

	metrics.Get().RecordWSConnection(1)
	h.logger.Info("WebSocket client connected: " + c.playerID)
}

// unregister reports whether the client was still registered. A connection
// replaced by a reconnect was already evicted and must not detach the
// player from the session again.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.sessionID]
	if !ok || !room[c] {
		return false
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.sessionID)
	}
	metrics.Get().RecordWSConnection(-1)
	h.logger.Info("WebSocket client disconnected: " + c.playerID)
	return true
}

// Broadcast sends a message to every connected client of the session whose
// role matches the audience. Slow clients are dropped rather than blocking
// the game loop.
func (h *Hub) Broadcast(sessionID string, aud game.Audience, msg events.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for broadcast: " + err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[sessionID] {
		if !audienceIncludes(aud, c.role()) {
			continue
		}
		select {
		case c.send <- payload:
			metrics.Get().RecordWSMessage(false)
		default:
			delete(h.rooms[sessionID], c)
			close(c.send)
			metrics.Get().RecordWSError()
		}
	}
}

// SendTo delivers a message to a single player's connection, if any.
func (h *Hub) SendTo(sessionID, playerID string, msg events.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message for send: " + err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[sessionID] {
		if c.playerID != playerID {
			continue
		}
		select {
		case c.send <- payload:
			metrics.Get().RecordWSMessage(false)
		default:
			delete(h.rooms[sessionID], c)
			close(c.send)
			metrics.Get().RecordWSError()
		}
		return
	}
}

// SetRole updates the audience classification of a player's connection.
func (h *Hub) SetRole(sessionID, playerID string, role player.Role) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[sessionID] {
		if c.playerID == playerID {
			c.setRole(role)
			return
		}
	}
}

func audienceIncludes(aud game.Audience, role player.Role) bool {
	switch aud {
	case game.AudienceHunters:
		return role == player.RoleHunter
	case game.AudienceHunted:
		return role == player.RoleHunted
	default:
		return true
	}
}
