package config

import (
	"testing"
	"time"

	"minigames/internal/game/deduction"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "minigames" || cfg.ServicePort != 8080 || cfg.ListenAddr() != "0.0.0.0:8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if lc := cfg.Lobby(); lc.Countdown != 30*time.Second || lc.Retention != 20*time.Minute || lc.SweepInterval != 10*time.Minute {
		t.Fatalf("lobby config = %+v", lc)
	}
	if r := cfg.DeductionRules(); r.RoundCap != 3 || r.RoundCapRule != deduction.RoundCapContinue {
		t.Fatalf("rules = %+v", r)
	}
	if cfg.NATSURL != "" || cfg.ConsulAddr != "" {
		t.Fatalf("integrations enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("LOBBY_COUNTDOWN", "5s")
	t.Setenv("DEDUCTION_ROUND_CAP", "5")
	t.Setenv("DEDUCTION_ROUND_CAP_RULE", "crew-wins")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:9000" || cfg.Lobby().Countdown != 5*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if r := cfg.DeductionRules(); r.RoundCap != 5 || r.RoundCapRule != deduction.RoundCapCrewWins {
		t.Fatalf("rules = %+v", r)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"bad rule":       {"JWT_SECRET": "x", "DEDUCTION_ROUND_CAP_RULE": "sudden-death"},
		"bad port":       {"JWT_SECRET": "x", "SERVICE_PORT": "70000"},
		"bad duration":   {"JWT_SECRET": "x", "LOBBY_COUNTDOWN": "soon"},
		"zero tick":      {"JWT_SECRET": "x", "SHOOTER_TICK_HZ": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("load accepted %v", vars)
			}
		})
	}
}
