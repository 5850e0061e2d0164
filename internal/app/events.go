package app

import (
	"context"

	"gridclaim/internal/domain"
)

// EventKind identifies emitted game events for dispatch.
type EventKind string

const (
	EventPlayerRegistered EventKind = "player_registered"
	EventGameStarted      EventKind = "game_started"
	EventTurnTaken        EventKind = "turn_taken"
	EventRoundIncremented EventKind = "round_incremented"
	EventGameEnded        EventKind = "game_ended"
	EventGameReset        EventKind = "game_reset"
	EventGameDestroyed    EventKind = "game_destroyed"
)

// Event is a game event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // participant IDs; empty means broadcast
}

type PlayerRegisteredPayload struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

type GameStartedPayload struct {
	Starter string `json:"starter"`
}

type TurnTakenPayload struct {
	ParticipantID string             `json:"participant_id"`
	Round         uint32             `json:"round"`
	Outcome       domain.TurnOutcome `json:"outcome"`
}

type RoundIncrementedPayload struct {
	RoundsPlayed uint32 `json:"rounds_played"`
}

// GameEndedPayload names the account that ended the game. Winner and Pot are
// also carried so observers need not re-read the state.
type GameEndedPayload struct {
	Ender  string `json:"ender"`
	Winner string `json:"winner"`
	Pot    uint64 `json:"pot"`
}

type GameResetPayload struct {
	EarliestStart uint64 `json:"earliest_start"`
}

type GameDestroyedPayload struct {
	Winner domain.Participant `json:"winner"`
}

// Publisher is the fire-and-forget notification sink.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Deliver hands events to every non-nil publisher.
func Deliver(ctx context.Context, events []Event, publishers ...Publisher) {
	if len(events) == 0 {
		return
	}
	for _, p := range publishers {
		if p != nil {
			p.Publish(ctx, events...)
		}
	}
}
