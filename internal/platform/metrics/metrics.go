// Package metrics provides observability for the game server.
// Counters feed the status endpoint and load testing analysis.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Session metrics
	SessionsCreated int64
	SessionsActive  int64
	SessionsEnded   int64

	// Gameplay metrics
	PlayersJoined int64
	Catches       int64
	ItemsUsed     int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64 // nanoseconds
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordSessionCreated records a new session entering the directory.
func (c *Collector) RecordSessionCreated() {
	atomic.AddInt64(&c.SessionsCreated, 1)
	atomic.AddInt64(&c.SessionsActive, 1)
}

// RecordSessionEnded records one session leaving the directory.
func (c *Collector) RecordSessionEnded() {
	atomic.AddInt64(&c.SessionsEnded, 1)
	atomic.AddInt64(&c.SessionsActive, -1)
}

// RecordPlayerJoined records a roster admission.
func (c *Collector) RecordPlayerJoined() {
	atomic.AddInt64(&c.PlayersJoined, 1)
}

// RecordCatch records a confirmed capture.
func (c *Collector) RecordCatch() {
	atomic.AddInt64(&c.Catches, 1)
}

// RecordItemUsed records an item activation.
func (c *Collector) RecordItemUsed() {
	atomic.AddInt64(&c.ItemsUsed, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var eventAvg float64
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6 // ms
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"sessions": map[string]interface{}{
			"created": atomic.LoadInt64(&c.SessionsCreated),
			"active":  atomic.LoadInt64(&c.SessionsActive),
			"ended":   atomic.LoadInt64(&c.SessionsEnded),
		},

		"gameplay": map[string]interface{}{
			"players_joined": atomic.LoadInt64(&c.PlayersJoined),
			"catches":        atomic.LoadInt64(&c.Catches),
			"items_used":     atomic.LoadInt64(&c.ItemsUsed),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Session metrics
		fmt.Fprintf(w, "# HELP pursuit_sessions_created Total sessions created\n")
		fmt.Fprintf(w, "# TYPE pursuit_sessions_created counter\n")
		fmt.Fprintf(w, "pursuit_sessions_created %d\n\n", atomic.LoadInt64(&c.SessionsCreated))

		fmt.Fprintf(w, "# HELP pursuit_sessions_active Sessions currently registered\n")
		fmt.Fprintf(w, "# TYPE pursuit_sessions_active gauge\n")
		fmt.Fprintf(w, "pursuit_sessions_active %d\n\n", atomic.LoadInt64(&c.SessionsActive))

		// Gameplay metrics
		fmt.Fprintf(w, "# HELP pursuit_players_joined Total roster admissions\n")
		fmt.Fprintf(w, "# TYPE pursuit_players_joined counter\n")
		fmt.Fprintf(w, "pursuit_players_joined %d\n\n", atomic.LoadInt64(&c.PlayersJoined))

		fmt.Fprintf(w, "# HELP pursuit_catches Total confirmed captures\n")
		fmt.Fprintf(w, "# TYPE pursuit_catches counter\n")
		fmt.Fprintf(w, "pursuit_catches %d\n\n", atomic.LoadInt64(&c.Catches))

		fmt.Fprintf(w, "# HELP pursuit_items_used Total item activations\n")
		fmt.Fprintf(w, "# TYPE pursuit_items_used counter\n")
		fmt.Fprintf(w, "pursuit_items_used %d\n\n", atomic.LoadInt64(&c.ItemsUsed))

		// Event metrics
		fmt.Fprintf(w, "# HELP pursuit_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE pursuit_events_written counter\n")
		fmt.Fprintf(w, "pursuit_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP pursuit_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE pursuit_event_write_errors counter\n")
		fmt.Fprintf(w, "pursuit_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP pursuit_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE pursuit_ws_connections gauge\n")
		fmt.Fprintf(w, "pursuit_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP pursuit_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE pursuit_ws_messages_total counter\n")
		fmt.Fprintf(w, "pursuit_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "pursuit_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
