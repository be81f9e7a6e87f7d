// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs to start. Fields are populated
// from the environment; defaults are suitable for local development.
type Config struct {
	Addr   string `env:"ADDR" envDefault:":8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/macsvc.db"`

	// LogLevel accepts slog level names: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// SessionTTL is the sliding-window lifetime of a login session.
	// The original deployment used two weeks.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"336h"`

	// PassTokenSecret signs the short-lived wallet pass download tokens.
	// If empty, pass downloads require a session cookie instead.
	PassTokenSecret string `env:"PASS_TOKEN_SECRET"`

	// PassTokenTTL bounds how long an issued pass download link stays valid.
	PassTokenTTL time.Duration `env:"PASS_TOKEN_TTL" envDefault:"15m"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}
