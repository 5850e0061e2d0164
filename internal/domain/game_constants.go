package domain

const (
	// PlayerLimit is the default number of participants allowed in one game.
	PlayerLimit = 80

	// TotalBudget is the compute allotted to all agents of one batch within one trigger.
	// It stays below the external per-trigger ceiling to leave room for the
	// orchestrator's own work.
	TotalBudget uint64 = 250_000_000_000

	// NameMinLen and NameMaxLen bound a participant name in bytes.
	NameMinLen = 3
	NameMaxLen = 16

	// SplitThreshold is the population above which a round is split into two batches.
	SplitThreshold = 30
)
