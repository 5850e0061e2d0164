package app

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by a Service operation aborts it without
// mutating state and matches one of these with errors.Is, unless it wraps an
// infrastructure failure from a store or ledger.
var (
	ErrPhase        = errors.New("phase violation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid request")
)

var (
	ErrNotForming      = fmt.Errorf("%w: participants can only be registered in the forming phase", ErrPhase)
	ErrAlreadyStarted  = fmt.Errorf("%w: game already started", ErrPhase)
	ErrNotRunning      = fmt.Errorf("%w: game does not accept turns right now", ErrPhase)
	ErrRoundsExhausted = fmt.Errorf("%w: all rounds have been played, the game must be ended", ErrPhase)
	ErrCannotEnd       = fmt.Errorf("%w: game cannot be ended yet or has already ended", ErrPhase)
	ErrNotFinished     = fmt.Errorf("%w: only finished games can be reset or destroyed", ErrPhase)

	ErrNotOpener = fmt.Errorf("%w: only the opener can start the game", ErrUnauthorized)
	ErrNotWinner = fmt.Errorf("%w: only the winner can destroy the game", ErrUnauthorized)

	ErrMissingID            = fmt.Errorf("%w: participant id is required", ErrInvalid)
	ErrNameLength           = fmt.Errorf("%w: invalid length for name", ErrInvalid)
	ErrWrongBuyIn           = fmt.Errorf("%w: stake does not match the buy-in", ErrInvalid)
	ErrCapacity             = fmt.Errorf("%w: maximum participant count reached", ErrInvalid)
	ErrDuplicateParticipant = fmt.Errorf("%w: participant already registered", ErrInvalid)
	ErrNameTaken            = fmt.Errorf("%w: name is already taken", ErrInvalid)
	ErrTooEarly             = fmt.Errorf("%w: game cannot be started yet", ErrInvalid)
	ErrNoParticipants       = fmt.Errorf("%w: at least one participant is required", ErrInvalid)
	ErrDuplicateTrigger     = fmt.Errorf("%w: a round was already advanced in this unit", ErrInvalid)
	ErrWinnerNotRegistered  = fmt.Errorf("%w: the winner is not a participant", ErrInvalid)

	// ErrMarkerUnset means the store lost the marker written at start.
	ErrMarkerUnset = errors.New("last-advanced marker was not set when starting the game")
)

// Agent failures. These never leave the Service; they become BrokenAgent outcomes.
var (
	ErrAgentPanicked = errors.New("agent panicked")
	ErrBudgetOverrun = errors.New("agent exceeded its compute limit")
)
