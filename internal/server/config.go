package server

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the HTTP surface settings, parsed from the environment.
type Config struct {
	Addr           string   `env:"DATATRIAGE_ADDR" envDefault:":8080"`
	AllowedOrigins []string `env:"DATATRIAGE_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	MaxUploadBytes int64    `env:"DATATRIAGE_MAX_UPLOAD_BYTES" envDefault:"104857600"`
}

// ConfigFromEnv loads the server configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
