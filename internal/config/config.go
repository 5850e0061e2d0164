package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"gridclaim/internal/app"
	"gridclaim/internal/bot"
	"gridclaim/internal/domain"
)

// BotGroup asks for Count in-process bots of one strategy.
type BotGroup struct {
	Strategy bot.Strategy `yaml:"strategy"`
	Count    int          `yaml:"count"`
}

// RemoteAgent is a participant that plays over the agent websocket.
type RemoteAgent struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type GameConfig struct {
	Width         uint32 `yaml:"width"`
	Height        uint32 `yaml:"height"`
	BuyIn         uint64 `yaml:"buy_in"`
	FormingRounds uint64 `yaml:"forming_rounds"`
	Rounds        uint32 `yaml:"rounds"`
	PlayerLimit   int    `yaml:"player_limit"`
	NameMin       int    `yaml:"name_min"`
	NameMax       int    `yaml:"name_max"`
	TotalBudget   uint64 `yaml:"total_budget"`

	// TickRate is the number of trigger units per second inside Nakama.
	TickRate int `yaml:"tick_rate"`
	// UnitsPerMs converts a remote agent's compute budget into a reply deadline.
	UnitsPerMs uint64 `yaml:"units_per_ms"`

	Wallet               string `yaml:"wallet"`
	// StarterGrant is credited once to every new Nakama account.
	StarterGrant         int64  `yaml:"starter_grant"`
	AgentTokenSecret     string `yaml:"agent_token_secret"`
	AgentTokenTTLSeconds int    `yaml:"agent_token_ttl_seconds"`

	Costs        bot.Costs     `yaml:"costs"`
	Bots         []BotGroup     `yaml:"bots"`
	RemoteAgents []RemoteAgent `yaml:"remote_agents"`
}

// Default returns the configuration used when no file is given.
func Default() GameConfig {
	return GameConfig{
		Width:                16,
		Height:               16,
		Rounds:               64,
		PlayerLimit:          domain.PlayerLimit,
		NameMin:              domain.NameMinLen,
		NameMax:              domain.NameMaxLen,
		TotalBudget:          domain.TotalBudget,
		TickRate:             1,
		UnitsPerMs:           1_000_000,
		Wallet:               "gold",
		StarterGrant:         1000,
		AgentTokenTTLSeconds: 3600,
		Costs:                bot.DefaultCosts,
		Bots: []BotGroup{
			{Strategy: bot.StrategySweeper, Count: 1},
			{Strategy: bot.StrategyScout, Count: 2},
		},
	}
}

// Parse overlays YAML onto the defaults.
func Parse(raw []byte) (GameConfig, error) {
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Load reads and parses the config file at path.
func Load(path string) (GameConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return GameConfig{}, fmt.Errorf("failed to read game config: %w", err)
	}
	return Parse(raw)
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the process-wide game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		c, err := Load(path)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the process-wide configuration, or the defaults if
// none was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}

// Validate checks the values the orchestrator does not check itself.
func (c GameConfig) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.UnitsPerMs == 0 {
		return fmt.Errorf("units_per_ms must be positive")
	}
	if c.StarterGrant < 0 {
		return fmt.Errorf("starter_grant must not be negative, got %d", c.StarterGrant)
	}
	for _, b := range c.Bots {
		if b.Count < 0 {
			return fmt.Errorf("bot count for %s must not be negative", b.Strategy)
		}
		if _, err := bot.NewBrain(b.Strategy, domain.Field{X: 1, Y: 1}, 0); err != nil {
			return err
		}
	}
	return c.Settings("validate").Validate()
}

// Settings converts the config into orchestrator settings for one game.
func (c GameConfig) Settings(opener string) app.Settings {
	return app.Settings{
		Dimensions:    domain.Field{X: c.Width, Y: c.Height},
		BuyIn:         c.BuyIn,
		FormingRounds: c.FormingRounds,
		Rounds:        c.Rounds,
		Opener:        opener,
		PlayerLimit:   c.PlayerLimit,
		NameMin:       c.NameMin,
		NameMax:       c.NameMax,
		TotalBudget:   c.TotalBudget,
	}
}

// Env keys read by ApplyEnv.
const (
	EnvWidth         = "gridclaim_width"
	EnvHeight        = "gridclaim_height"
	EnvBuyIn         = "gridclaim_buy_in"
	EnvFormingRounds = "gridclaim_forming_rounds"
	EnvRounds        = "gridclaim_rounds"
	EnvTickRate      = "gridclaim_tick_rate"
	EnvWallet        = "gridclaim_wallet"
	EnvTokenSecret   = "gridclaim_agent_token_secret"
)

// ApplyEnv overrides values from a runtime environment map such as the one
// Nakama exposes under RUNTIME_CTX_ENV.
func (c GameConfig) ApplyEnv(env map[string]string) (GameConfig, error) {
	var err error
	set := func(key string, apply func(string) error) {
		v, ok := env[key]
		if !ok || v == "" || err != nil {
			return
		}
		if e := apply(v); e != nil {
			err = fmt.Errorf("env %s: %w", key, e)
		}
	}
	u32 := func(dst *uint32) func(string) error {
		return func(v string) error {
			n, e := strconv.ParseUint(v, 10, 32)
			*dst = uint32(n)
			return e
		}
	}
	u64 := func(dst *uint64) func(string) error {
		return func(v string) error {
			n, e := strconv.ParseUint(v, 10, 64)
			*dst = n
			return e
		}
	}

	set(EnvWidth, u32(&c.Width))
	set(EnvHeight, u32(&c.Height))
	set(EnvBuyIn, u64(&c.BuyIn))
	set(EnvFormingRounds, u64(&c.FormingRounds))
	set(EnvRounds, u32(&c.Rounds))
	set(EnvTickRate, func(v string) error {
		n, e := strconv.Atoi(v)
		c.TickRate = n
		return e
	})
	set(EnvWallet, func(v string) error { c.Wallet = v; return nil })
	set(EnvTokenSecret, func(v string) error { c.AgentTokenSecret = v; return nil })
	if err != nil {
		return c, err
	}
	return c, c.Validate()
}
