// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings.
type Config struct {
	Port             int           `env:"DICE_PORT"          envDefault:"30000"`
	DBPath           string        `env:"DICE_DB_PATH"       envDefault:"data/dice.db"`
	DBBusyTimeout    time.Duration `env:"DICE_DB_BUSY_TIMEOUT" envDefault:"5s"`
	DBMaxConns       int           `env:"DICE_DB_MAX_CONNS"  envDefault:"1"`
	RedisURL         string        `env:"DICE_REDIS_URL"`
	LogLevel         string        `env:"DICE_LOG_LEVEL"     envDefault:"info"`
	Dev              bool          `env:"DICE_DEV"           envDefault:"false"`
	TurnTimerSeconds int           `env:"DICE_TURN_TIMER"    envDefault:"60"`
	SnapshotTTL      time.Duration `env:"DICE_SNAPSHOT_TTL"  envDefault:"2h"`
}

// Load reads Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid DICE_PORT %d", cfg.Port)
	}
	if cfg.DBMaxConns < 1 {
		return Config{}, fmt.Errorf("invalid DICE_DB_MAX_CONNS %d", cfg.DBMaxConns)
	}
	if cfg.TurnTimerSeconds < 0 {
		return Config{}, fmt.Errorf("invalid DICE_TURN_TIMER %d", cfg.TurnTimerSeconds)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TurnTimer returns the per-turn limit; zero disables the timer.
func (c Config) TurnTimer() time.Duration {
	return time.Duration(c.TurnTimerSeconds) * time.Second
}
