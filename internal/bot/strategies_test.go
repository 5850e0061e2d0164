package bot

import (
	"context"
	"errors"
	"testing"

	"gridclaim/internal/domain"
)

type fakeBoard map[domain.Field]*domain.Claim

func (b fakeBoard) Field(_ context.Context, coord domain.Field) (*domain.Claim, error) {
	return b[coord], nil
}

func newTurn(board Board, limit uint64) *Turn {
	return &Turn{
		ctx:   context.Background(),
		meter: NewMeter(limit),
		board: board,
		costs: DefaultCosts,
	}
}

func TestSweeperWalksDiagonal(t *testing.T) {
	dims := domain.Field{X: 4, Y: 4}
	board := fakeBoard{{X: 1, Y: 1}: {Owner: "other"}}
	b := NewSweeper(dims, 0)

	tests := []struct {
		name string
		want domain.Field
	}{
		{name: "free diagonal", want: domain.Field{X: 0, Y: 0}},
		{name: "taken diagonal steps right", want: domain.Field{X: 2, Y: 1}},
		{name: "free again", want: domain.Field{X: 2, Y: 2}},
		{name: "last column", want: domain.Field{X: 3, Y: 3}},
		{name: "wraps", want: domain.Field{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Propose(newTurn(board, 1<<40))
			if err != nil {
				t.Fatalf("Propose: %v", err)
			}
			if got == nil || *got != tt.want {
				t.Fatalf("Propose() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScoutCoversBoardOnce(t *testing.T) {
	dims := domain.Field{X: 3, Y: 3}
	board := fakeBoard{}
	b := NewScout(dims, 11)

	for i := 0; i < 9; i++ {
		got, err := b.Propose(newTurn(board, 1<<40))
		if err != nil {
			t.Fatalf("Propose: %v", err)
		}
		if got == nil || !dims.Contains(*got) {
			t.Fatalf("turn %d: Propose() = %+v", i, got)
		}
		if board[*got] != nil {
			t.Fatalf("turn %d: proposed %+v twice", i, *got)
		}
		board[*got] = &domain.Claim{Owner: "scout"}
	}
	if got, _ := b.Propose(newTurn(board, 1<<40)); got != nil {
		t.Fatalf("exhausted scout proposed %+v", *got)
	}

	b.Reset()
	if len(b.empty) != 9 {
		t.Fatalf("Reset left %d candidates, want 9", len(b.empty))
	}
}

func TestScoutSkipsClaimedCells(t *testing.T) {
	dims := domain.Field{X: 2, Y: 2}
	board := fakeBoard{
		{X: 0, Y: 0}: {Owner: "a"},
		{X: 0, Y: 1}: {Owner: "a"},
		{X: 1, Y: 0}: {Owner: "a"},
	}
	got, err := NewScout(dims, 3).Propose(newTurn(board, 1<<40))
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if got == nil || *got != (domain.Field{X: 1, Y: 1}) {
		t.Fatalf("Propose() = %+v, want (1,1)", got)
	}
}

func TestScoutStopsWhenMeterRunsOut(t *testing.T) {
	dims := domain.Field{X: 8, Y: 8}
	board := fakeBoard{}
	for x := uint32(0); x < 8; x++ {
		for y := uint32(0); y < 8; y++ {
			board[domain.Field{X: x, Y: y}] = &domain.Claim{Owner: "a"}
		}
	}
	turn := newTurn(board, DefaultCosts.Query*3)
	_, err := NewScout(dims, 1).Propose(turn)
	if !errors.Is(err, ErrOutOfCompute) {
		t.Fatalf("err = %v, want out of compute", err)
	}
	if turn.Used() != DefaultCosts.Query*3 {
		t.Fatalf("used = %d, want pinned at limit", turn.Used())
	}
}

func TestWildAndIdle(t *testing.T) {
	dims := domain.Field{X: 5, Y: 5}
	got, _ := WildBot{dims: dims}.Propose(newTurn(nil, 1))
	if got == nil || dims.Contains(*got) {
		t.Fatalf("wild proposed %+v, want out of bounds", got)
	}
	if got, _ := (IdleBot{}).Propose(newTurn(nil, 1)); got != nil {
		t.Fatalf("idle proposed %+v", *got)
	}
}

func TestNewBrain(t *testing.T) {
	dims := domain.Field{X: 4, Y: 4}
	for _, s := range []Strategy{StrategySweeper, StrategyScout, StrategyIdle, StrategyWild, StrategyFaulty} {
		if _, err := NewBrain(s, dims, 1); err != nil {
			t.Fatalf("NewBrain(%s): %v", s, err)
		}
	}
	if _, err := NewBrain("telepath", dims, 1); err == nil {
		t.Fatalf("expected unknown strategy error")
	}
}

func TestNewIdentityNamesFitBounds(t *testing.T) {
	for _, s := range []Strategy{StrategySweeper, StrategyScout, StrategyIdle, StrategyWild, StrategyFaulty} {
		id := NewIdentity(79, s)
		if len(id.Name) < domain.NameMinLen || len(id.Name) > domain.NameMaxLen {
			t.Fatalf("name %q out of bounds", id.Name)
		}
		if !IsBot(id.ID) {
			t.Fatalf("IsBot(%s) = false", id.ID)
		}
	}
	if IsBot("user-1") {
		t.Fatalf("IsBot(user-1) = true")
	}
}
