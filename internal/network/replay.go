// Match replay endpoint - JSON export of a session's recorded history.
//
// Allows organizers and players to replay the immutable sequence of
// transitions after (or during) a match.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/platform/logger"
)

// ReplayHandler provides the match replay API.
type ReplayHandler struct {
	matchLog *events.MatchLog
	logger   *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(ml *events.MatchLog, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		matchLog: ml,
		logger:   log,
	}
}

// ReplayEvent is a sanitized event for public viewing.
type ReplayEvent struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	ActorID   string `json:"actor_id"`
	TargetID  string `json:"target_id,omitempty"`
	Summary   string `json:"summary"`
}

// ReplayResponse is the API response for a match replay.
type ReplayResponse struct {
	SessionID   string        `json:"session_id"`
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// HandleReplay returns the recorded history for a session.
// GET /api/replay?session_id=XXX&type=PLAYER_CAUGHT&actor_id=YYY
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		rh.jsonError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	// Optional filters
	eventType := r.URL.Query().Get("type")
	actorID := r.URL.Query().Get("actor_id")

	allEvents := rh.matchLog.BySession(sessionID)

	var replayEvents []ReplayEvent
	filterDesc := ""

	for _, e := range allEvents {
		if eventType != "" {
			if string(e.Type) != eventType {
				continue
			}
			filterDesc = "type " + eventType
		}
		if actorID != "" {
			if e.ActorID != actorID {
				continue
			}
			filterDesc = "actor " + actorID
		}
		replayEvents = append(replayEvents, rh.convertToReplayEvent(e))
	}

	response := ReplayResponse{
		SessionID:   sessionID,
		TotalEvents: len(replayEvents),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      replayEvents,
	}

	rh.logger.Event("MATCH_REPLAY", "api", "SessionID:"+sessionID+" Events:"+strconv.Itoa(len(replayEvents)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/replay", rh.HandleReplay)
}

// convertToReplayEvent transforms an internal event to public format.
func (rh *ReplayHandler) convertToReplayEvent(e events.MatchEvent) ReplayEvent {
	return ReplayEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Type:      string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Summary:   summarizeEvent(e),
	}
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.MatchEvent) string {
	switch e.Type {
	case events.MatchSessionCreated:
		return "The session was created."
	case events.MatchPlayerJoined:
		return "A player joined the lobby."
	case events.MatchPlayerRejoined:
		return "A player reconnected."
	case events.MatchPlayerLeft:
		return "A player disconnected."
	case events.MatchRoleChanged:
		return "A player switched sides."
	case events.MatchSessionStarted:
		return "The pursuit began."
	case events.MatchCatchStarted:
		return "A hunter closed in on a target."
	case events.MatchCatchEnded:
		return "A target slipped away."
	case events.MatchPlayerCaught:
		return "A player was caught."
	case events.MatchItemPickedUp:
		return "An item was claimed."
	case events.MatchItemDropped:
		return "An item was dropped."
	case events.MatchItemUsed:
		return "An item was activated."
	case events.MatchEffectExpired:
		return "An effect wore off."
	case events.MatchSessionEnded:
		return "The session ended."
	default:
		return "Something happened."
	}
}

// jsonError sends an error response.
func (rh *ReplayHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
