package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/ports"
)

var (
	ErrPotShort     = errors.New("pot holds less than the requested payout")
	ErrAmountTooBig = errors.New("amount does not fit a wallet changeset")
)

// WalletAPI is the part of runtime.NakamaModule the wallet ledger needs.
type WalletAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error)
}

type potObject struct {
	Pot uint64 `json:"pot"`
}

// WalletLedger implements ports.Ledger with Nakama wallets. The pot is a
// system-owned storage object; every stake movement updates the wallet and
// the pot in one MultiUpdate guarded by the pot's storage version.
//
// In-process bots have no wallet. Their stake is charged to the account that
// sponsored them, which also receives the pot if a bot wins.
type WalletLedger struct {
	nk       WalletAPI
	game     string
	currency string

	mu       sync.Mutex
	sponsors map[string]string
}

func NewWalletLedger(nk WalletAPI, game, currency string) *WalletLedger {
	if currency == "" {
		currency = "gold"
	}
	return &WalletLedger{
		nk:       nk,
		game:     game,
		currency: currency,
		sponsors: make(map[string]string),
	}
}

// Sponsor routes wallet movements for participant to account.
func (l *WalletLedger) Sponsor(participant, account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sponsors[participant] = account
}

// Account returns the wallet owner that pays and receives for participant.
func (l *WalletLedger) Account(participant string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if account, ok := l.sponsors[participant]; ok {
		return account
	}
	return participant
}

// Pot returns the current pot.
func (l *WalletLedger) Pot(ctx context.Context) (uint64, error) {
	pot, _, err := l.readPot(ctx)
	return pot, err
}

func (l *WalletLedger) readPot(ctx context.Context) (uint64, string, error) {
	objects, err := l.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: StorageCollection,
		Key:        l.game + ".pot",
	}})
	if err != nil {
		return 0, "", fmt.Errorf("read pot: %w", err)
	}
	if len(objects) == 0 {
		// "*" makes the first write fail if another writer created the pot meanwhile.
		return 0, "*", nil
	}
	var obj potObject
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &obj); err != nil {
		return 0, "", fmt.Errorf("decode pot: %w", err)
	}
	return obj.Pot, objects[0].GetVersion(), nil
}

func (l *WalletLedger) apply(ctx context.Context, participant string, delta int64, pot uint64, version, reason string) error {
	raw, err := json.Marshal(potObject{Pot: pot})
	if err != nil {
		return err
	}
	writes := []*runtime.StorageWrite{{
		Collection:      StorageCollection,
		Key:             l.game + ".pot",
		Value:           string(raw),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}
	account := l.Account(participant)
	var wallets []*runtime.WalletUpdate
	if delta != 0 {
		wallets = []*runtime.WalletUpdate{{
			UserID:    account,
			Changeset: map[string]int64{l.currency: delta},
			Metadata: map[string]interface{}{
				"game":        l.game,
				"participant": participant,
				"reason":      reason,
			},
		}}
	}
	if _, _, err := l.nk.MultiUpdate(ctx, nil, writes, nil, wallets, true); err != nil {
		return fmt.Errorf("%s for %s: %w", reason, account, err)
	}
	return nil
}

// Collect debits the stake from the participant's wallet into the pot.
// Nakama rejects a wallet update that would go negative.
func (l *WalletLedger) Collect(ctx context.Context, from string, amount uint64) error {
	if amount > math.MaxInt64 {
		return ErrAmountTooBig
	}
	if amount == 0 {
		return nil
	}
	pot, version, err := l.readPot(ctx)
	if err != nil {
		return err
	}
	if pot > math.MaxUint64-amount {
		return ErrAmountTooBig
	}
	return l.apply(ctx, from, -int64(amount), pot+amount, version, "stake")
}

// Transfer pays amount from the pot into the recipient's wallet.
func (l *WalletLedger) Transfer(ctx context.Context, to string, amount uint64) error {
	if amount > math.MaxInt64 {
		return ErrAmountTooBig
	}
	if amount == 0 {
		return nil
	}
	pot, version, err := l.readPot(ctx)
	if err != nil {
		return err
	}
	if pot < amount {
		return fmt.Errorf("transfer %d to %s: %w", amount, to, ErrPotShort)
	}
	return l.apply(ctx, to, int64(amount), pot-amount, version, "payout")
}

var _ ports.Ledger = (*WalletLedger)(nil)
