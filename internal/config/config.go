package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sia12-web/uniHood-sub008/internal/engine"
)

// Config holds every tunable of the game server. Values come from the
// environment, with a .env file honored for local development.
type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	// SessionTTL removes sessions idle longer than this; 0 disables the
	// sweep entirely and sessions live until explicit removal.
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"0"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// RematchStarter is the role that opens every rematch game.
	RematchStarter string `env:"REMATCH_STARTER" envDefault:"X"`

	// HistoryDSN enables the finished-match archive when set.
	HistoryDSN string `env:"HISTORY_DSN"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Starter(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Starter converts RematchStarter into a board mark.
func (c Config) Starter() (engine.Mark, error) {
	switch c.RematchStarter {
	case "X":
		return engine.MarkX, nil
	case "O":
		return engine.MarkO, nil
	default:
		return engine.MarkEmpty, fmt.Errorf("REMATCH_STARTER must be X or O, got %q", c.RematchStarter)
	}
}
