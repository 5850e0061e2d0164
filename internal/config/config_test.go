package config

import (
	"os"
	"path/filepath"
	"testing"

	"gridclaim/internal/bot"
	"gridclaim/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	s := c.Settings("opener")
	if s.Dimensions != (domain.Field{X: 16, Y: 16}) || s.TotalBudget != domain.TotalBudget {
		t.Fatalf("settings = %+v", s)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	raw := []byte(`
width: 8
height: 4
rounds: 12
bots:
  - strategy: wild
    count: 3
`)
	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Width != 8 || c.Height != 4 || c.Rounds != 12 {
		t.Fatalf("parsed = %+v", c)
	}
	if c.PlayerLimit != domain.PlayerLimit || c.UnitsPerMs != 1_000_000 {
		t.Fatalf("defaults lost: %+v", c)
	}
	if len(c.Bots) != 1 || c.Bots[0].Strategy != bot.StrategyWild || c.Bots[0].Count != 3 {
		t.Fatalf("bots = %+v", c.Bots)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "zero width", raw: "width: 0"},
		{name: "zero rounds", raw: "rounds: 0"},
		{name: "unknown bot", raw: "bots: [{strategy: psychic, count: 1}]"},
		{name: "bad tick rate", raw: "tick_rate: 0"},
		{name: "negative starter grant", raw: "starter_grant: -5"},
		{name: "malformed", raw: "width: [1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.raw)); err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.raw)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	if err := os.WriteFile(path, []byte("buy_in: 25\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BuyIn != 25 {
		t.Fatalf("buy_in = %d, want 25", c.BuyIn)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load of missing file succeeded")
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default().ApplyEnv(map[string]string{
		EnvWidth:       "10",
		EnvRounds:      "20",
		EnvWallet:      "coins",
		EnvTokenSecret: "s3cret",
		"unrelated":    "x",
	})
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Width != 10 || c.Height != 16 || c.Rounds != 20 || c.Wallet != "coins" || c.AgentTokenSecret != "s3cret" {
		t.Fatalf("config = %+v", c)
	}
	if _, err := Default().ApplyEnv(map[string]string{EnvHeight: "tall"}); err == nil {
		t.Fatalf("expected parse error")
	}
}
