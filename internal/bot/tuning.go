package bot

// Costs prices the work an in-process bot does during one turn.
type Costs struct {
	Call  uint64 `yaml:"call"`
	Query uint64 `yaml:"query"`
	Step  uint64 `yaml:"step"`
}

// DefaultCosts keeps a bot far below the per-round budget of a full game.
var DefaultCosts = Costs{
	Call:  1_000_000,
	Query: 250_000,
	Step:  10_000,
}
