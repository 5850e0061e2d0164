package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gridclaim/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPotShort          = errors.New("pot holds less than the requested payout")
)

// Ledger is an in-memory ports.Ledger with per-account balances and a pot.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]uint64
	pot      uint64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

// Fund credits an account outside of any game.
func (l *Ledger) Fund(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = domain.SaturatingAdd(l.balances[account], amount)
}

func (l *Ledger) Balance(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

func (l *Ledger) Pot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pot
}

func (l *Ledger) Collect(ctx context.Context, from string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf("collect %d from %s: %w", amount, from, ErrInsufficientFunds)
	}
	l.balances[from] -= amount
	l.pot = domain.SaturatingAdd(l.pot, amount)
	return nil
}

func (l *Ledger) Transfer(ctx context.Context, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pot < amount {
		return fmt.Errorf("transfer %d to %s: %w", amount, to, ErrPotShort)
	}
	l.pot -= amount
	l.balances[to] = domain.SaturatingAdd(l.balances[to], amount)
	return nil
}
