package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

// StorageAPI is the part of runtime.NakamaModule the storage store needs.
type StorageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

type headerObject struct {
	State     domain.State `json:"state"`
	Marker    uint64       `json:"marker"`
	MarkerSet bool         `json:"marker_set"`
}

type participantsObject struct {
	Participants domain.Registry `json:"participants"`
}

type claimsObject struct {
	Claims map[uint32]domain.Claim `json:"claims"`
}

// StorageStore is a ports.Store over Nakama storage. A game is three
// system-owned objects keyed by the game id: header, participants and claims.
// Multi-object writes go through one StorageWrite call, which Nakama applies
// in a single transaction.
type StorageStore struct {
	nk   StorageAPI
	game string
}

func NewStorageStore(nk StorageAPI, game string) *StorageStore {
	return &StorageStore{nk: nk, game: game}
}

func (s *StorageStore) key(name string) string { return s.game + "." + name }

func (s *StorageStore) read(ctx context.Context, name string, dst any) (bool, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: StorageCollection,
		Key:        s.key(name),
	}})
	if err != nil {
		return false, fmt.Errorf("storage read %s: %w", name, err)
	}
	if len(objects) == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(objects[0].GetValue()), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *StorageStore) write(name string, value any) (*runtime.StorageWrite, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return &runtime.StorageWrite{
		Collection:      StorageCollection,
		Key:             s.key(name),
		Value:           string(raw),
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}, nil
}

func (s *StorageStore) commit(ctx context.Context, writes ...*runtime.StorageWrite) error {
	if _, err := s.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("storage write: %w", err)
	}
	return nil
}

func (s *StorageStore) header(ctx context.Context) (headerObject, error) {
	var h headerObject
	found, err := s.read(ctx, "header", &h)
	if err != nil {
		return h, err
	}
	if !found {
		return h, ports.ErrNoGame
	}
	return h, nil
}

func (s *StorageStore) putHeader(ctx context.Context, h headerObject) error {
	w, err := s.write("header", h)
	if err != nil {
		return err
	}
	return s.commit(ctx, w)
}

func (s *StorageStore) State(ctx context.Context) (domain.State, error) {
	h, err := s.header(ctx)
	return h.State, err
}

func (s *StorageStore) PutState(ctx context.Context, state domain.State) error {
	h, err := s.header(ctx)
	if err != nil && !errors.Is(err, ports.ErrNoGame) {
		return err
	}
	h.State = state
	return s.putHeader(ctx, h)
}

func (s *StorageStore) LastAdvanced(ctx context.Context) (uint64, bool, error) {
	h, err := s.header(ctx)
	if err != nil {
		return 0, false, err
	}
	return h.Marker, h.MarkerSet, nil
}

func (s *StorageStore) PutLastAdvanced(ctx context.Context, unit uint64) error {
	h, err := s.header(ctx)
	if err != nil {
		return err
	}
	h.Marker = unit
	h.MarkerSet = true
	return s.putHeader(ctx, h)
}

func (s *StorageStore) Claim(ctx context.Context, idx uint32) (domain.Claim, bool, error) {
	claims, err := s.Claims(ctx)
	if err != nil {
		return domain.Claim{}, false, err
	}
	c, ok := claims[idx]
	return c, ok, nil
}

func (s *StorageStore) Claims(ctx context.Context) (map[uint32]domain.Claim, error) {
	if _, err := s.header(ctx); err != nil {
		return nil, err
	}
	var obj claimsObject
	if _, err := s.read(ctx, "claims", &obj); err != nil {
		return nil, err
	}
	if obj.Claims == nil {
		obj.Claims = make(map[uint32]domain.Claim)
	}
	return obj.Claims, nil
}

func (s *StorageStore) Participants(ctx context.Context) (domain.Registry, error) {
	if _, err := s.header(ctx); err != nil {
		return nil, err
	}
	var obj participantsObject
	if _, err := s.read(ctx, "participants", &obj); err != nil {
		return nil, err
	}
	return obj.Participants, nil
}

func (s *StorageStore) PutParticipants(ctx context.Context, participants domain.Registry) error {
	if _, err := s.header(ctx); err != nil {
		return err
	}
	w, err := s.write("participants", participantsObject{Participants: participants})
	if err != nil {
		return err
	}
	return s.commit(ctx, w)
}

// CommitRound merges the round's claims into the stored board without
// overwriting any field, then writes board, registry and state together.
func (s *StorageStore) CommitRound(ctx context.Context, commit ports.RoundCommit) error {
	h, err := s.header(ctx)
	if err != nil {
		return err
	}
	claims, err := s.Claims(ctx)
	if err != nil {
		return err
	}
	for idx, c := range commit.Claims {
		if _, taken := claims[idx]; !taken {
			claims[idx] = c
		}
	}
	h.State = commit.State

	hw, err := s.write("header", h)
	if err != nil {
		return err
	}
	pw, err := s.write("participants", participantsObject{Participants: commit.Participants})
	if err != nil {
		return err
	}
	cw, err := s.write("claims", claimsObject{Claims: claims})
	if err != nil {
		return err
	}
	return s.commit(ctx, hw, pw, cw)
}

func (s *StorageStore) Reset(ctx context.Context, state domain.State) error {
	hw, err := s.write("header", headerObject{State: state, MarkerSet: true})
	if err != nil {
		return err
	}
	pw, err := s.write("participants", participantsObject{})
	if err != nil {
		return err
	}
	cw, err := s.write("claims", claimsObject{Claims: map[uint32]domain.Claim{}})
	if err != nil {
		return err
	}
	return s.commit(ctx, hw, pw, cw)
}

func (s *StorageStore) Drop(ctx context.Context) error {
	deletes := make([]*runtime.StorageDelete, 0, 3)
	for _, name := range []string{"header", "participants", "claims"} {
		deletes = append(deletes, &runtime.StorageDelete{Collection: StorageCollection, Key: s.key(name)})
	}
	if err := s.nk.StorageDelete(ctx, deletes); err != nil {
		return fmt.Errorf("storage delete: %w", err)
	}
	return nil
}

var _ ports.Store = (*StorageStore)(nil)
