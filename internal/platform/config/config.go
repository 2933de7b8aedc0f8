// Package config loads the server configuration from the environment,
// with an optional .env file for development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	// Addr is the listen address of the HTTP and WebSocket server.
	Addr string `env:"PURSUIT_ADDR" envDefault:":8080"`

	// DBPath is the SQLite database file. Empty disables persistence.
	DBPath string `env:"PURSUIT_DB_PATH" envDefault:"pursuit.db"`

	// ClientOrigin restricts WebSocket origins. "*" allows any.
	ClientOrigin string `env:"PURSUIT_CLIENT_ORIGIN" envDefault:"*"`

	// JoinBaseURL is the public URL prefix encoded into join QR codes.
	JoinBaseURL string `env:"PURSUIT_JOIN_BASE_URL" envDefault:"http://localhost:8080"`

	// MaxBoundaryAreaKm2 caps the play area accepted at session creation.
	// Zero disables the check.
	MaxBoundaryAreaKm2 float64 `env:"PURSUIT_MAX_AREA_KM2" envDefault:"25"`

	// StressProfile switches the tuning profile to stress test settings.
	StressProfile bool `env:"PURSUIT_STRESS_PROFILE" envDefault:"false"`
}

// Load reads the .env file when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
