package bot

import (
	"context"

	"gridclaim/internal/domain"
)

// Board is the read path an in-process agent may query while proposing.
type Board interface {
	Field(ctx context.Context, coord domain.Field) (*domain.Claim, error)
}

// Brain is the interface that all bot strategies must implement. A nil
// field means the bot declines to move.
// The compute meter only sees work a brain reports through Turn.Step and
// Turn.Field; it is not a hard cap on a brain that never reports.
type Brain interface {
	Propose(turn *Turn) (*domain.Field, error)
}

// Resetter is implemented by brains that keep per-game memory.
type Resetter interface {
	Reset()
}

// Turn is what a brain sees when asked for a move. Every board query and
// search step is charged against the turn's meter.
type Turn struct {
	ctx        context.Context
	Snapshot   domain.RoundSnapshot
	Dimensions domain.Field

	meter *Meter
	board Board
	costs Costs
}

// Field reads one board cell through the orchestrator.
func (t *Turn) Field(coord domain.Field) (*domain.Claim, error) {
	if err := t.meter.Charge(t.costs.Query); err != nil {
		return nil, err
	}
	if t.board == nil {
		return nil, nil
	}
	return t.board.Field(t.ctx, coord)
}

// Step charges one unit of search work.
func (t *Turn) Step() error {
	return t.meter.Charge(t.costs.Step)
}

// Used reports the compute consumed so far in this turn.
func (t *Turn) Used() uint64 { return t.meter.Used() }
