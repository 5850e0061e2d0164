package bot

import (
	"fmt"

	"gridclaim/internal/domain"
)

// Strategy names a built-in bot behaviour.
type Strategy string

const (
	StrategySweeper Strategy = "sweeper"
	StrategyScout   Strategy = "scout"
	StrategyIdle    Strategy = "idle"
	StrategyWild    Strategy = "wild"
	StrategyFaulty  Strategy = "faulty"
)

// NewBrain creates a new bot brain for the given strategy. seed feeds
// strategies that start at an offset or pick at random.
func NewBrain(strategy Strategy, dims domain.Field, seed int64) (Brain, error) {
	switch strategy {
	case StrategySweeper, "":
		return NewSweeper(dims, uint32(seed)), nil
	case StrategyScout:
		return NewScout(dims, seed), nil
	case StrategyIdle:
		return IdleBot{}, nil
	case StrategyWild:
		return WildBot{dims: dims}, nil
	case StrategyFaulty:
		return FaultyBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot strategy: %q", strategy)
	}
}
