package bot

import (
	"errors"
	"math/rand"

	"gridclaim/internal/domain"
)

// SweeperBot walks the diagonal, stepping one sideways when the diagonal
// cell is already taken.
type SweeperBot struct {
	dims domain.Field
	next uint32
}

func NewSweeper(dims domain.Field, start uint32) *SweeperBot {
	return &SweeperBot{dims: dims, next: start}
}

func (b *SweeperBot) Propose(turn *Turn) (*domain.Field, error) {
	if b.dims.X == 0 {
		return nil, nil
	}
	step := b.next
	if b.next < ^uint32(0) {
		b.next++
	}
	first := step % b.dims.X

	claim, err := turn.Field(domain.Field{X: first, Y: first})
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return &domain.Field{X: first, Y: first}, nil
	}
	return &domain.Field{X: (first + 1) % b.dims.X, Y: first}, nil
}

// ScoutBot remembers which cells it has not tried yet and picks among them
// at random, verifying each pick against the board before proposing it.
type ScoutBot struct {
	dims  domain.Field
	rng   *rand.Rand
	empty []domain.Field
}

func NewScout(dims domain.Field, seed int64) *ScoutBot {
	b := &ScoutBot{dims: dims, rng: rand.New(rand.NewSource(seed))}
	b.Reset()
	return b
}

// Reset refills the list of candidate cells.
func (b *ScoutBot) Reset() {
	b.empty = b.empty[:0]
	for x := uint32(0); x < b.dims.X; x++ {
		for y := uint32(0); y < b.dims.Y; y++ {
			b.empty = append(b.empty, domain.Field{X: x, Y: y})
		}
	}
}

func (b *ScoutBot) Propose(turn *Turn) (*domain.Field, error) {
	for len(b.empty) > 0 {
		if err := turn.Step(); err != nil {
			return nil, err
		}
		idx := b.rng.Intn(len(b.empty))
		pick := b.empty[idx]
		b.empty = append(b.empty[:idx], b.empty[idx+1:]...)

		claim, err := turn.Field(pick)
		if err != nil {
			return nil, err
		}
		if claim == nil {
			return &pick, nil
		}
	}
	return nil, nil
}

// IdleBot never moves.
type IdleBot struct{}

func (IdleBot) Propose(*Turn) (*domain.Field, error) { return nil, nil }

// WildBot always aims just past the right edge of the board.
type WildBot struct {
	dims domain.Field
}

func (b WildBot) Propose(*Turn) (*domain.Field, error) {
	return &domain.Field{X: b.dims.X, Y: 0}, nil
}

// FaultyBot crashes on every turn.
type FaultyBot struct{}

var errFaulty = errors.New("faulty bot")

func (FaultyBot) Propose(*Turn) (*domain.Field, error) {
	panic(errFaulty)
}
