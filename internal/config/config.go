// Package config loads the orchestrator's settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"minigames/internal/game/deduction"
	"minigames/internal/lobby"
)

// Config holds every setting of the server process.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"minigames"`
	ServicePort int    `env:"SERVICE_PORT" envDefault:"8080"`
	HTTPAddr    string `env:"HTTP_ADDR"`

	JWTSecret string `env:"JWT_SECRET,required"`
	DBPath    string `env:"DB_PATH" envDefault:"minigames.db"`

	// Empty disables the integration.
	NATSURL    string `env:"NATS_URL"`
	ConsulAddr string `env:"CONSUL_HTTP_ADDR"`

	LogDevelopment bool `env:"LOG_DEVELOPMENT" envDefault:"false"`

	LobbyCountdown     time.Duration `env:"LOBBY_COUNTDOWN" envDefault:"30s"`
	LobbySweepInterval time.Duration `env:"LOBBY_SWEEP_INTERVAL" envDefault:"10m"`
	LobbyRetention     time.Duration `env:"LOBBY_RETENTION" envDefault:"20m"`

	ShooterTickHz int `env:"SHOOTER_TICK_HZ" envDefault:"60"`

	DeductionRoundCap     int    `env:"DEDUCTION_ROUND_CAP" envDefault:"3"`
	DeductionRoundCapRule string `env:"DEDUCTION_ROUND_CAP_RULE" envDefault:"continue"`
	ConceptsFile          string `env:"CONCEPTS_FILE"`
}

// Load parses and validates the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServicePort <= 0 || c.ServicePort > 65535 {
		return fmt.Errorf("SERVICE_PORT %d out of range", c.ServicePort)
	}
	if c.ShooterTickHz <= 0 {
		return fmt.Errorf("SHOOTER_TICK_HZ must be positive")
	}
	if c.DeductionRoundCap <= 0 {
		return fmt.Errorf("DEDUCTION_ROUND_CAP must be positive")
	}
	if _, err := deduction.ParseRoundCapRule(c.DeductionRoundCapRule); err != nil {
		return fmt.Errorf("DEDUCTION_ROUND_CAP_RULE: %w", err)
	}
	if c.LobbyCountdown <= 0 || c.LobbySweepInterval <= 0 || c.LobbyRetention <= 0 {
		return fmt.Errorf("lobby durations must be positive")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be blank")
	}
	return nil
}

// ListenAddr is HTTP_ADDR, or every interface on SERVICE_PORT.
func (c *Config) ListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf("0.0.0.0:%d", c.ServicePort)
}

func (c *Config) Lobby() lobby.Config {
	cfg := lobby.DefaultConfig()
	cfg.Countdown = c.LobbyCountdown
	cfg.SweepInterval = c.LobbySweepInterval
	cfg.Retention = c.LobbyRetention
	return cfg
}

// DeductionRules applies the configured cap and rule to the default rules.
func (c *Config) DeductionRules() deduction.Rules {
	r := deduction.DefaultRules()
	r.RoundCap = c.DeductionRoundCap
	r.RoundCapRule, _ = deduction.ParseRoundCapRule(c.DeductionRoundCapRule)
	return r
}
