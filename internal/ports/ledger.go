package ports

import "context"

// Ledger moves stake between participants and the game pot.
type Ledger interface {
	// Collect escrows amount from a participant into the pot.
	Collect(ctx context.Context, from string, amount uint64) error

	// Transfer pays amount out of the pot to the recipient atomically.
	// A failed transfer must leave both sides unchanged.
	Transfer(ctx context.Context, to string, amount uint64) error
}
