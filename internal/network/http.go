// REST API and WebSocket entry points for the pursuit server.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/game"
	"github.com/pursuit-game/server/internal/infra/storage"
	"github.com/pursuit-game/server/internal/platform/logger"
	"github.com/pursuit-game/server/internal/platform/metrics"
	"github.com/pursuit-game/server/internal/platform/optimization"
)

// Server wires the HTTP surface: session management, match history and the
// WebSocket upgrade.
type Server struct {
	directory *game.Directory
	hub       *Hub
	results   storage.ResultRepository
	recapper  *storage.Recapper
	logger    *logger.Logger

	joinBaseURL  string
	clientOrigin string
	upgrader     websocket.Upgrader
}

// NewServer creates the HTTP handler set. results and recapper may be nil
// when the server runs without persistence.
func NewServer(directory *game.Directory, hub *Hub, results storage.ResultRepository, recapper *storage.Recapper, log *logger.Logger, joinBaseURL, clientOrigin string) *Server {
	s := &Server{
		directory:    directory,
		hub:          hub,
		results:      results,
		recapper:     recapper,
		logger:       log,
		joinBaseURL:  joinBaseURL,
		clientOrigin: clientOrigin,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if s.clientOrigin == "" || s.clientOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == s.clientOrigin
		},
	}
	return s
}

// CreateSessionRequest is the payload for creating a new session.
type CreateSessionRequest struct {
	DurationMinutes int         `json:"duration_minutes"`
	MaxHunters      int         `json:"max_hunters"`
	MaxHunted       int         `json:"max_hunted"`
	Boundary        geo.Polygon `json:"boundary"`
}

// HandleCreateSession creates a lobby and returns its join code.
// POST /api/sessions
func (s *Server) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.directory.Create(game.Config{
		Quota:           game.RoleQuota{Hunters: req.MaxHunters, Hunted: req.MaxHunted},
		Boundary:        req.Boundary,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": sess.ID(),
		"join_code":  sess.JoinCode(),
		"join_url":   s.joinURL(sess.JoinCode()),
	})
}

// HandleJoinQR renders the join URL of a session as a QR code.
// GET /api/sessions/qr?code=XXX
func (s *Server) HandleJoinQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	sess, err := s.directory.Get(code)
	if err != nil {
		s.jsonError(w, "Unknown join code", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(s.joinURL(sess.JoinCode()), qrcode.Medium, 256)
	if err != nil {
		s.jsonError(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// HandleResults lists recently finished matches.
// GET /api/results?limit=N
func (s *Server) HandleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.results == nil {
		s.jsonError(w, "Persistence disabled", http.StatusNotImplemented)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n <= 100 {
			limit = n
		}
	}

	results, err := s.results.ListRecent(r.Context(), limit)
	if err != nil {
		s.jsonError(w, "Failed to load results", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
}

// HandleRecap returns per-player stats derived from a session's event log.
// GET /api/recap?session_id=XXX
func (s *Server) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recapper == nil {
		s.jsonError(w, "Persistence disabled", http.StatusNotImplemented)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.jsonError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	recap, err := s.recapper.Build(r.Context(), sessionID)
	if err != nil {
		s.jsonError(w, "Failed to build recap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recap)
}

// HandleWS upgrades the connection and joins the player into a session.
// GET /ws?code=XXX&name=YYY&player_id=ZZZ
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	name := q.Get("name")
	playerID := q.Get("player_id")
	if playerID == "" {
		playerID = uuid.New().String()
	}

	sess, err := s.directory.Get(code)
	if err != nil {
		s.jsonError(w, "Unknown join code", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed: " + err.Error())
		return
	}

	init, err := sess.Join(playerID, name)
	if err != nil {
		payload, _ := json.Marshal(events.Message{
			Type:    events.TypeError,
			Payload: events.ErrorInfo{Reason: err.Error()},
		})
		conn.WriteMessage(websocket.TextMessage, payload)
		conn.Close()
		return
	}

	client := NewClient(s.hub, conn, sess, s.directory, playerID, player.Role(init.You.Role))
	client.Register()

	// The snapshot goes through the send queue so it is always the first
	// frame the client reads.
	snapshot, err := json.Marshal(events.Message{Type: events.TypeGameInit, Payload: init})
	if err == nil {
		client.send <- snapshot
	}

	go client.WritePump()
	go client.ReadPump()
}

// HandleTuning reports load-derived tuning recommendations.
// GET /api/tuning
func (s *Server) HandleTuning(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(optimization.Analyze(metrics.Get().Snapshot()))
}

// RegisterRoutes sets up the server API routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", s.HandleCreateSession)
	mux.HandleFunc("/api/sessions/qr", s.HandleJoinQR)
	mux.HandleFunc("/api/results", s.HandleResults)
	mux.HandleFunc("/api/recap", s.HandleRecap)
	mux.HandleFunc("/api/status", metrics.Handler())
	mux.HandleFunc("/api/tuning", s.HandleTuning)
	mux.HandleFunc("/metrics", metrics.PrometheusHandler())
	mux.HandleFunc("/ws", s.HandleWS)
}

func (s *Server) joinURL(code string) string {
	return s.joinBaseURL + "/join/" + code
}

// jsonError sends an error response.
func (s *Server) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
