package bot

import (
	"fmt"
	"strings"

	"gridclaim/internal/domain"
)

const idPrefix = "bot-"

// Identity is the participant identity of an in-process bot.
type Identity struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

// NewIdentity derives a stable identity for the index-th bot of a game.
// Names stay within the usual 3..16 byte bound.
func NewIdentity(index int, strategy Strategy) Identity {
	if strategy == "" {
		strategy = StrategySweeper
	}
	name := fmt.Sprintf("%s-%02d", strategy, index)
	return Identity{
		ID:       idPrefix + name,
		Name:     name,
		Strategy: strategy,
	}
}

// IsBot reports whether the given participant id belongs to an in-process bot.
func IsBot(id string) bool {
	return strings.HasPrefix(id, idPrefix)
}

// Spawn builds an agent for the identity.
func Spawn(identity Identity, dims domain.Field, seed int64) (*Agent, error) {
	brain, err := NewBrain(identity.Strategy, dims, seed)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: identity.ID, Name: identity.Name, Strategy: brain}, nil
}
