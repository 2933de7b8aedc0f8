package network

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/platform/logger"
)

func newReplayFixture() *ReplayHandler {
	ml := events.NewMatchLog(nil)
	ml.Record("s1", events.MatchSessionCreated, "system", "", nil)
	ml.Record("s1", events.MatchPlayerJoined, "alice", "", nil)
	ml.Record("s1", events.MatchPlayerJoined, "bob", "", nil)
	ml.Record("s1", events.MatchPlayerCaught, "alice", "bob", nil)
	ml.Record("s2", events.MatchSessionCreated, "system", "", nil)
	return NewReplayHandler(ml, logger.NewLogger())
}

func getReplay(t *testing.T, rh *ReplayHandler, query string) ReplayResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/replay?"+query, nil)
	rec := httptest.NewRecorder()
	rh.HandleReplay(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ReplayResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestReplayReturnsSessionHistory(t *testing.T) {
	rh := newReplayFixture()

	resp := getReplay(t, rh, "session_id=s1")
	if resp.TotalEvents != 4 {
		t.Fatalf("Expected 4 events, got %d", resp.TotalEvents)
	}
	if resp.Events[0].Type != string(events.MatchSessionCreated) {
		t.Errorf("Expected first event SESSION_CREATED, got %s", resp.Events[0].Type)
	}
	for _, e := range resp.Events {
		if e.Summary == "" {
			t.Errorf("Event %s has no summary", e.Type)
		}
	}
}

func TestReplayFiltersByTypeAndActor(t *testing.T) {
	rh := newReplayFixture()

	byType := getReplay(t, rh, "session_id=s1&type="+string(events.MatchPlayerJoined))
	if byType.TotalEvents != 2 {
		t.Errorf("Expected 2 joins, got %d", byType.TotalEvents)
	}

	byActor := getReplay(t, rh, "session_id=s1&actor_id=alice")
	if byActor.TotalEvents != 2 {
		t.Errorf("Expected 2 events by alice, got %d", byActor.TotalEvents)
	}
	for _, e := range byActor.Events {
		if e.ActorID != "alice" {
			t.Errorf("Expected actor alice, got %s", e.ActorID)
		}
	}
}

func TestReplayIsolatesSessions(t *testing.T) {
	rh := newReplayFixture()

	resp := getReplay(t, rh, "session_id=s2")
	if resp.TotalEvents != 1 {
		t.Errorf("Expected 1 event for s2, got %d", resp.TotalEvents)
	}
}

func TestReplayRequiresSessionID(t *testing.T) {
	rh := newReplayFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/replay", nil)
	rec := httptest.NewRecorder()
	rh.HandleReplay(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
