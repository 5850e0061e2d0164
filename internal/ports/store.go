package ports

import (
	"context"
	"errors"

	"gridclaim/internal/domain"
)

// ErrNoGame is returned by a Store that holds no game state (never created or dropped).
var ErrNoGame = errors.New("no game state")

// RoundCommit is the write-back of one round: the advanced state, the mutated
// registry and the claims made during the round.
type RoundCommit struct {
	State        domain.State
	Participants domain.Registry
	Claims       map[uint32]domain.Claim
}

// Store is the durable substrate of one game. Reads and writes are synchronous
// and visible immediately to the same execution.
type Store interface {
	// State returns the phase cell or ErrNoGame.
	State(ctx context.Context) (domain.State, error)
	PutState(ctx context.Context, state domain.State) error

	// LastAdvanced returns the last unit in which a round advanced. set is false
	// before the game was ever started.
	LastAdvanced(ctx context.Context) (unit uint64, set bool, err error)
	PutLastAdvanced(ctx context.Context, unit uint64) error

	// Claim returns the claim stored at a linear board index.
	Claim(ctx context.Context, idx uint32) (domain.Claim, bool, error)
	// Claims returns every stored claim keyed by linear index.
	Claims(ctx context.Context) (map[uint32]domain.Claim, error)

	Participants(ctx context.Context) (domain.Registry, error)
	PutParticipants(ctx context.Context, participants domain.Registry) error

	// CommitRound persists a round atomically.
	CommitRound(ctx context.Context, commit RoundCommit) error

	// Reset clears the board and the registry, zeroes the marker and writes state.
	Reset(ctx context.Context, state domain.State) error

	// Drop removes all game state permanently.
	Drop(ctx context.Context) error
}
