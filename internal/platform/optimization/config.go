// Package optimization provides concurrency tuning for high load.
// Channel buffers and connection pool settings in one place.
package optimization

import (
	"runtime"
)

// Config holds tuned parameters for high-load scenarios.
type Config struct {
	// Channel buffer sizes
	ClientSendBuffer int

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Rate limiting
	MaxMessagesPerSecond int
	MaxClientsPerSession int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		ClientSendBuffer: 256, // Per WebSocket

		// Database connections
		DBMaxOpenConns: numCPU * 4, // 4 connections per CPU
		DBMaxIdleConns: numCPU * 2, // Keep half warm

		// Rate limits
		MaxMessagesPerSecond: 100, // Per client
		MaxClientsPerSession: 64,  // Per session
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		ClientSendBuffer: 512,

		DBMaxOpenConns: numCPU * 8,
		DBMaxIdleConns: numCPU * 4,

		MaxMessagesPerSecond: 500,
		MaxClientsPerSession: 256,
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseSendBuffer    bool
	IncreaseDBConnections bool
	Notes                 []string
}

// Analyze examines current metrics and returns optimization recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Check event write latency
	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseSendBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseSendBuffer {
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns) * 1.5)
	}
	return config
}
