package domain

// Phase represents the lifecycle stage of a game.
type Phase string

const (
	// PhaseForming is the pre-game state where participants register.
	PhaseForming Phase = "forming"
	// PhaseRunning is the active state in which rounds are played.
	PhaseRunning Phase = "running"
	// PhaseFinished is the state after settlement; only reset or destroy are legal.
	PhaseFinished Phase = "finished"
)

// State is the tagged union of the game phase and the data that belongs to it.
// Only the fields of the active Phase are meaningful.
type State struct {
	Phase Phase `json:"phase"`

	// EarliestStart is the first unit in which Start is accepted (Forming).
	EarliestStart uint64 `json:"earliest_start,omitempty"`
	// RoundsPlayed counts the rounds advanced so far (Running).
	RoundsPlayed uint32 `json:"rounds_played,omitempty"`
	// Winner is the participant that received the pot (Finished).
	Winner string `json:"winner,omitempty"`
}

// Forming returns the state of a game waiting for participants.
func Forming(earliestStart uint64) State {
	return State{Phase: PhaseForming, EarliestStart: earliestStart}
}

// Running returns the state of a game with the given number of rounds played.
func Running(roundsPlayed uint32) State {
	return State{Phase: PhaseRunning, RoundsPlayed: roundsPlayed}
}

// Finished returns the state of a settled game.
func Finished(winner string) State {
	return State{Phase: PhaseFinished, Winner: winner}
}

// Participant is a registered agent and its accumulated counters.
type Participant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ComputeUsed uint64 `json:"compute_used"`
	Score       uint64 `json:"score"`
}

// Claim records that a field was taken.
type Claim struct {
	Owner        string `json:"owner"`
	ClaimedRound uint32 `json:"claimed_round"`
}

// ScoreEntry is one line of the public score table handed to agents.
type ScoreEntry struct {
	Name  string `json:"name"`
	Score uint64 `json:"score"`
}

// RoundSnapshot is the read-only game info an agent receives when asked for a move.
// It never carries board contents.
type RoundSnapshot struct {
	RoundsPlayed uint32       `json:"rounds_played"`
	BudgetLeft   uint64       `json:"compute_budget_remaining"`
	Scores       []ScoreEntry `json:"scores"`
}

// NewRoundSnapshot builds the snapshot for a round from the registry in its current order.
func NewRoundSnapshot(round uint32, participants Registry) RoundSnapshot {
	scores := make([]ScoreEntry, 0, len(participants))
	for _, p := range participants {
		scores = append(scores, ScoreEntry{Name: p.Name, Score: p.Score})
	}
	return RoundSnapshot{RoundsPlayed: round, Scores: scores}
}
