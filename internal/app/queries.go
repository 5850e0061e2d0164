package app

import (
	"context"

	"gridclaim/internal/domain"
)

// Phase returns the current state of the game.
func (s *Service) Phase(ctx context.Context) (domain.State, error) {
	return s.store.State(ctx)
}

// IsRunning reports whether the game accepts turns: it is Running and has
// rounds left to play.
func (s *Service) IsRunning(ctx context.Context) (bool, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return false, err
	}
	return state.Phase == domain.PhaseRunning && state.RoundsPlayed < s.settings.Rounds, nil
}

func (s *Service) Dimensions() domain.Field { return s.settings.Dimensions }
func (s *Service) BuyIn() uint64            { return s.settings.BuyIn }
func (s *Service) TotalRounds() uint32      { return s.settings.Rounds }

// RoundBudget is the compute one agent may spend per invocation with the
// current registry.
func (s *Service) RoundBudget(ctx context.Context) (uint64, error) {
	participants, err := s.participants(ctx)
	if err != nil {
		return 0, err
	}
	return domain.RoundBudget(s.settings.TotalBudget, len(participants)), nil
}

// BatchCount is the number of batches the current registry is split into.
func (s *Service) BatchCount(ctx context.Context) (uint32, error) {
	participants, err := s.participants(ctx)
	if err != nil {
		return 0, err
	}
	return domain.BatchCount(len(participants)), nil
}

// GameBudget is the lifetime compute allowance of one agent.
func (s *Service) GameBudget(ctx context.Context) (uint64, error) {
	perRound, err := s.RoundBudget(ctx)
	if err != nil {
		return 0, err
	}
	return domain.GameBudget(perRound, s.settings.Rounds), nil
}

// Field returns the claim on a coordinate, or nil when it is free or off the board.
func (s *Service) Field(ctx context.Context, coord domain.Field) (*domain.Claim, error) {
	if err := s.requireGame(ctx); err != nil {
		return nil, err
	}
	dims := s.settings.Dimensions
	if !dims.Contains(coord) {
		return nil, nil
	}
	idx, _ := dims.Index(coord)
	claim, ok, err := s.claimAt(ctx, idx)
	if err != nil || !ok {
		return nil, err
	}
	return &claim, nil
}

// Board returns every cell in linear index order; free cells are nil.
func (s *Service) Board(ctx context.Context) ([]*domain.Claim, error) {
	if err := s.requireGame(ctx); err != nil {
		return nil, err
	}
	stored, err := s.store.Claims(ctx)
	if err != nil {
		return nil, err
	}
	board := make([]*domain.Claim, s.settings.Dimensions.Area())
	for idx, c := range stored {
		c := c
		if int(idx) < len(board) {
			board[idx] = &c
		}
	}
	if s.round != nil {
		for idx, c := range s.round.claims {
			c := c
			board[idx] = &c
		}
	}
	return board, nil
}

// Ranked returns the participants in scoring order, best first.
func (s *Service) Ranked(ctx context.Context) (domain.Registry, error) {
	participants, err := s.participants(ctx)
	if err != nil {
		return nil, err
	}
	return participants.Ranked(), nil
}

// participants loads the registry after checking the game exists.
func (s *Service) participants(ctx context.Context) (domain.Registry, error) {
	if err := s.requireGame(ctx); err != nil {
		return nil, err
	}
	return s.store.Participants(ctx)
}

func (s *Service) requireGame(ctx context.Context) error {
	_, err := s.store.State(ctx)
	return err
}
