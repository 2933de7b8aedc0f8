package network

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pursuit-game/server/internal/domain/geo"
	"github.com/pursuit-game/server/internal/domain/player"
	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/game"
	"github.com/pursuit-game/server/internal/platform/logger"
)

func newTestServer() (*Server, *game.Directory) {
	log := logger.NewLogger()
	hub := NewHub(log)
	dir := game.NewDirectory(hub, log, events.NewMatchLog(nil), nil, rand.New(rand.NewSource(99)), 0)
	return NewServer(dir, hub, nil, nil, log, "http://localhost:8080", "*"), dir
}

func testBoundary() geo.Polygon {
	return geo.Polygon{
		{Lat: 40.0, Lng: -3.0},
		{Lat: 40.01, Lng: -3.0},
		{Lat: 40.01, Lng: -2.99},
		{Lat: 40.0, Lng: -2.99},
	}
}

func validCreateBody() []byte {
	body := map[string]interface{}{
		"duration_minutes": 30,
		"max_hunters":      2,
		"max_hunted":       2,
		"boundary": []map[string]float64{
			{"lat": 40.0, "lng": -3.0},
			{"lat": 40.01, "lng": -3.0},
			{"lat": 40.01, "lng": -2.99},
			{"lat": 40.0, "lng": -2.99},
		},
	}
	payload, _ := json.Marshal(body)
	return payload
}

func TestCreateSessionReturnsJoinDetails(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(validCreateBody()))
	rec := httptest.NewRecorder()
	srv.HandleCreateSession(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID string `json:"session_id"`
		JoinCode  string `json:"join_code"`
		JoinURL   string `json:"join_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("Expected a session id")
	}
	if len(resp.JoinCode) != game.JoinCodeLength {
		t.Errorf("Expected join code of length %d, got %q", game.JoinCodeLength, resp.JoinCode)
	}
	if resp.JoinURL != "http://localhost:8080/join/"+resp.JoinCode {
		t.Errorf("Unexpected join URL %q", resp.JoinURL)
	}
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"malformed JSON", "{not json"},
		{"zero duration", `{"duration_minutes":0,"max_hunters":2,"max_hunted":2,"boundary":[{"lat":40,"lng":-3},{"lat":40.01,"lng":-3},{"lat":40.01,"lng":-2.99},{"lat":40,"lng":-2.99}]}`},
		{"degenerate boundary", `{"duration_minutes":30,"max_hunters":2,"max_hunted":2,"boundary":[{"lat":40,"lng":-3},{"lat":40.01,"lng":-3}]}`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader([]byte(tc.body)))
		rec := httptest.NewRecorder()
		srv.HandleCreateSession(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestCreateSessionRejectsWrongMethod(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	srv.HandleCreateSession(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestJoinQRRendersPNG(t *testing.T) {
	srv, dir := newTestServer()

	sess, err := dir.Create(game.Config{
		Quota:           game.RoleQuota{Hunters: 2, Hunted: 2},
		Boundary:        testBoundary(),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/qr?code="+sess.JoinCode(), nil)
	rec := httptest.NewRecorder()
	srv.HandleJoinQR(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("Expected PNG bytes in response body")
	}
}

func TestJoinQRUnknownCode(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/qr?code=zzzzzz", nil)
	rec := httptest.NewRecorder()
	srv.HandleJoinQR(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestResultsWithoutPersistence(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	rec := httptest.NewRecorder()
	srv.HandleResults(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", rec.Code)
	}
}

func TestRecapWithoutPersistence(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/recap?session_id=abc", nil)
	rec := httptest.NewRecorder()
	srv.HandleRecap(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", rec.Code)
	}
}

func TestAudienceFiltering(t *testing.T) {
	cases := []struct {
		aud  game.Audience
		role player.Role
		want bool
	}{
		{game.AudienceAll, player.RoleHunter, true},
		{game.AudienceAll, player.RoleHunted, true},
		{game.AudienceHunters, player.RoleHunter, true},
		{game.AudienceHunters, player.RoleHunted, false},
		{game.AudienceHunted, player.RoleHunted, true},
		{game.AudienceHunted, player.RoleHunter, false},
	}

	for _, tc := range cases {
		if got := audienceIncludes(tc.aud, tc.role); got != tc.want {
			t.Errorf("audienceIncludes(%v, %v) = %v, want %v", tc.aud, tc.role, got, tc.want)
		}
	}
}
