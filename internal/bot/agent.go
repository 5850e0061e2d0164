package bot

import (
	"gridclaim/internal/domain"
)

// Agent represents an autonomous bot participant.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Play asks the agent's strategy for a move on the given turn.
func (a *Agent) Play(turn *Turn) (*domain.Field, error) {
	if a.Strategy == nil {
		return nil, nil
	}
	return a.Strategy.Propose(turn)
}

// OnGameReset clears any memory the strategy keeps between turns.
func (a *Agent) OnGameReset() {
	if r, ok := a.Strategy.(Resetter); ok {
		r.Reset()
	}
}
