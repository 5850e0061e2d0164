package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/ports"
)

const starterGrantKey = "starter_grant_v1"

// AccountAPI is the part of runtime.NakamaModule the account adapter needs.
type AccountAPI interface {
	AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error
}

// AccountAdapter implements ports.AccountPort using Nakama's account API.
type AccountAdapter struct {
	nk AccountAPI
}

func NewAccountAdapter(nk AccountAPI) *AccountAdapter {
	return &AccountAdapter{nk: nk}
}

func (a *AccountAdapter) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, username, nil, displayName, "", "", "", "")
}

// StarterGrantAdapter credits the starter grant with a wallet update and a
// per-user marker object written in the same MultiUpdate. The marker is
// written with version "*", so a second grant is rejected by storage.
type StarterGrantAdapter struct {
	nk       WalletAPI
	currency string
}

func NewStarterGrantAdapter(nk WalletAPI, currency string) *StarterGrantAdapter {
	if currency == "" {
		currency = "gold"
	}
	return &StarterGrantAdapter{nk: nk, currency: currency}
}

func (a *StarterGrantAdapter) GrantOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	if amount <= 0 {
		return false, fmt.Errorf("amount must be positive")
	}

	value, err := json.Marshal(map[string]interface{}{
		"amount":     amount,
		"currency":   a.currency,
		"granted_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal starter grant marker: %w", err)
	}

	writes := []*runtime.StorageWrite{{
		Collection:      StorageCollection,
		Key:             starterGrantKey,
		UserID:          userID,
		Value:           string(value),
		Version:         "*",
		PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}
	wallets := []*runtime.WalletUpdate{{
		UserID:    userID,
		Changeset: map[string]int64{a.currency: amount},
		Metadata:  metadata,
	}}

	if _, _, err := a.nk.MultiUpdate(ctx, nil, writes, nil, wallets, true); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to credit starter grant: %w", err)
	}
	return true, nil
}

var (
	_ ports.AccountPort      = (*AccountAdapter)(nil)
	_ ports.StarterGrantPort = (*StarterGrantAdapter)(nil)
)
