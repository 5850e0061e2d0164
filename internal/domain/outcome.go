package domain

// OutcomeKind identifies the result of one agent's turn.
type OutcomeKind string

const (
	// OutcomeSuccess means the field was claimed.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeOutOfBounds means the proposed field is not on the board.
	OutcomeOutOfBounds OutcomeKind = "out_of_bounds"
	// OutcomeOccupied means the field was claimed by someone earlier.
	OutcomeOccupied OutcomeKind = "occupied"
	// OutcomeBrokenAgent means the agent failed, overran its budget or replied garbage.
	OutcomeBrokenAgent OutcomeKind = "broken_agent"
	// OutcomeNoMove means the agent declined to move.
	OutcomeNoMove OutcomeKind = "no_move"
	// OutcomeBudgetExhausted means the agent has no lifetime budget left and was not called.
	OutcomeBudgetExhausted OutcomeKind = "budget_exhausted"
)

// TurnOutcome is the observable per-agent result of a round. Field is set for
// Success, OutOfBounds and Occupied; Owner only for Occupied.
type TurnOutcome struct {
	Kind  OutcomeKind `json:"kind"`
	Field *Field      `json:"field,omitempty"`
	Owner string      `json:"owner,omitempty"`
}

func Success(f Field) TurnOutcome     { return TurnOutcome{Kind: OutcomeSuccess, Field: &f} }
func OutOfBounds(f Field) TurnOutcome { return TurnOutcome{Kind: OutcomeOutOfBounds, Field: &f} }
func BrokenAgent() TurnOutcome        { return TurnOutcome{Kind: OutcomeBrokenAgent} }
func NoMove() TurnOutcome             { return TurnOutcome{Kind: OutcomeNoMove} }
func BudgetExhausted() TurnOutcome    { return TurnOutcome{Kind: OutcomeBudgetExhausted} }

func Occupied(f Field, owner string) TurnOutcome {
	return TurnOutcome{Kind: OutcomeOccupied, Field: &f, Owner: owner}
}

// ClaimScore is the score earned for a claim made in round (0-based).
func ClaimScore(round uint32) uint64 {
	return uint64(round) + 1
}
