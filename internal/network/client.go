package network

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/game"
	"github.com/pursuit-game/server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Minimum spacing between non-location actions from one client.
	actionCooldown = 300 * time.Millisecond
)

// PlayerAction represents an incoming command from a player's device.
type PlayerAction struct {
	Type    string          `json:"type"`    // "LOCATION", "ITEM_USE", etc.
	Payload json.RawMessage `json:"payload"` // Action-specific data
}

// Client holds one player's WebSocket connection and routes their actions
// into the session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	playerID  string

	sess      *game.Session
	directory *game.Directory

	// playerRole is guarded by hub.mu; the hub reads it to scope
	// broadcasts and updates it on role changes.
	playerRole player.Role

	lastActionTime time.Time
}

// NewClient creates a new WebSocket client for a joined player.
func NewClient(hub *Hub, conn *websocket.Conn, sess *game.Session, directory *game.Directory, playerID string, role player.Role) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		sessionID:  sess.ID(),
		playerID:   playerID,
		sess:       sess,
		directory:  directory,
		playerRole: role,
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register(c)
}

func (c *Client) role() player.Role        { return c.playerRole }
func (c *Client) setRole(role player.Role) { c.playerRole = role }

// ReadPump pumps messages from the websocket connection into the session.
func (c *Client) ReadPump() {
	defer func() {
		if c.hub.unregister(c) {
			c.directory.Disconnect(c.sess, c.playerID)
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Error("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	// Location fixes stream continuously; everything else is rate limited.
	if action.Type != "LOCATION" {
		if time.Since(c.lastActionTime) < actionCooldown {
			c.hub.logger.Warn("Rate limit exceeded for action from " + c.playerID)
			return
		}
		c.lastActionTime = time.Now()
	}

	switch action.Type {
	case "LOCATION":
		c.handleLocation(action.Payload)
	case "ROLE_PREF":
		c.handleRolePref(action.Payload)
	case "ITEM_PICKUP":
		c.handleItemPickup(action.Payload)
	case "ITEM_DROP":
		c.handleItemDrop(action.Payload)
	case "ITEM_USE":
		c.handleItemUse(action.Payload)
	case "ATTEMPT_CATCH":
		c.handleAttemptCatch(action.Payload)
	case "START_SESSION":
		c.handleStartSession()
	default:
		c.hub.logger.Warn("Unknown PlayerAction type: " + action.Type)
	}
}

func (c *Client) handleLocation(rawPayload []byte) {
	var parsed struct {
		Lat       float64 `json:"lat"`
		Lng       float64 `json:"lng"`
		AccuracyM float64 `json:"accuracy"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		c.hub.logger.Warn("Failed to parse location payload from " + c.playerID)
		return
	}
	c.sess.UpdateLocation(c.playerID, parsed.Lat, parsed.Lng, parsed.AccuracyM)
}

func (c *Client) handleRolePref(rawPayload []byte) {
	var parsed struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		return
	}
	c.sess.SetRolePreference(c.playerID, player.Role(parsed.Role))
}

func (c *Client) handleItemPickup(rawPayload []byte) {
	var parsed struct {
		ItemID string `json:"item_id"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		return
	}
	if err := c.sess.Pickup(c.playerID, parsed.ItemID); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleItemDrop(rawPayload []byte) {
	var parsed struct {
		ItemID string  `json:"item_id"`
		Lat    float64 `json:"lat"`
		Lng    float64 `json:"lng"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		return
	}
	c.sess.Drop(c.playerID, parsed.ItemID, geo.Point{Lat: parsed.Lat, Lng: parsed.Lng})
}

func (c *Client) handleItemUse(rawPayload []byte) {
	var parsed struct {
		ItemID string `json:"item_id"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		return
	}
	c.sess.Use(c.playerID, parsed.ItemID)
}

func (c *Client) handleAttemptCatch(rawPayload []byte) {
	var parsed struct {
		TargetID string `json:"target_id"`
	}
	if err := json.Unmarshal(rawPayload, &parsed); err != nil {
		return
	}
	c.sess.AttemptCatch(c.playerID, parsed.TargetID)
}

func (c *Client) handleStartSession() {
	if err := c.sess.Start(c.playerID); err != nil {
		c.sendError(err.Error())
	}
}

// sendError delivers a rejection reason to this client only.
func (c *Client) sendError(reason string) {
	payload, err := json.Marshal(events.Message{
		Type:    events.TypeError,
		Payload: events.ErrorInfo{Reason: reason},
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
