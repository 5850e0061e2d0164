// Package memory keeps game state and stakes in process memory.
package memory

import (
	"context"
	"maps"
	"sync"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

// Store is an in-memory ports.Store. Values are copied on the way in and out
// so callers never alias stored data.
type Store struct {
	mu sync.RWMutex

	exists       bool
	state        domain.State
	marker       uint64
	markerSet    bool
	claims       map[uint32]domain.Claim
	participants domain.Registry
}

// NewStore returns an empty store holding no game.
func NewStore() *Store {
	return &Store{claims: make(map[uint32]domain.Claim)}
}

func (s *Store) State(ctx context.Context) (domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return domain.State{}, ports.ErrNoGame
	}
	return s.state, nil
}

func (s *Store) PutState(ctx context.Context, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.exists = true
	return nil
}

func (s *Store) LastAdvanced(ctx context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return 0, false, ports.ErrNoGame
	}
	return s.marker, s.markerSet, nil
}

func (s *Store) PutLastAdvanced(ctx context.Context, unit uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return ports.ErrNoGame
	}
	s.marker = unit
	s.markerSet = true
	return nil
}

func (s *Store) Claim(ctx context.Context, idx uint32) (domain.Claim, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return domain.Claim{}, false, ports.ErrNoGame
	}
	c, ok := s.claims[idx]
	return c, ok, nil
}

func (s *Store) Claims(ctx context.Context) (map[uint32]domain.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, ports.ErrNoGame
	}
	return maps.Clone(s.claims), nil
}

func (s *Store) Participants(ctx context.Context) (domain.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, ports.ErrNoGame
	}
	return s.participants.Clone(), nil
}

func (s *Store) PutParticipants(ctx context.Context, participants domain.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return ports.ErrNoGame
	}
	s.participants = participants.Clone()
	return nil
}

// CommitRound writes a round under a single lock. Claims already present are
// kept; a field is never overwritten.
func (s *Store) CommitRound(ctx context.Context, commit ports.RoundCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return ports.ErrNoGame
	}
	for idx, c := range commit.Claims {
		if _, taken := s.claims[idx]; !taken {
			s.claims[idx] = c
		}
	}
	s.participants = commit.Participants.Clone()
	s.state = commit.State
	return nil
}

func (s *Store) Reset(ctx context.Context, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = true
	s.state = state
	s.marker = 0
	s.markerSet = true
	s.claims = make(map[uint32]domain.Claim)
	s.participants = nil
	return nil
}

func (s *Store) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.state = domain.State{}
	s.marker = 0
	s.markerSet = false
	s.claims = make(map[uint32]domain.Claim)
	s.participants = nil
	return nil
}
