package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	DataPath         string        `env:"DATA_PATH" envDefault:""`
	CardsFile        string        `env:"CARDS_FILE" envDefault:""`
	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"72h"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	Debug            bool          `env:"DEBUG" envDefault:"false"`
}

// FromEnv loads configuration from environment variables.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
