// Package snapshot exports a whole game to a zstd-compressed file and
// imports it back into any ports.Store.
package snapshot

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

const Version = 1

var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version      int          `json:"version"`
	GameID       string       `json:"game_id"`
	Phase        domain.Phase `json:"phase"`
	RoundsPlayed uint32       `json:"rounds_played"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Rounds uint32 `json:"rounds"`
	BuyIn  uint64 `json:"buy_in"`

	State     domain.State `json:"state"`
	Marker    uint64       `json:"marker"`
	MarkerSet bool         `json:"marker_set"`

	Participants []domain.Participant `json:"participants"`
	Claims       []ClaimV1            `json:"claims"`
}

type ClaimV1 struct {
	Index        uint32 `json:"index"`
	Owner        string `json:"owner"`
	ClaimedRound uint32 `json:"claimed_round"`
}

// Export reads the full game out of store. Claims are ordered by index.
func Export(ctx context.Context, store ports.Store, gameID string) (SnapshotV1, error) {
	var snap SnapshotV1

	state, err := store.State(ctx)
	if err != nil {
		return snap, err
	}
	marker, set, err := store.LastAdvanced(ctx)
	if err != nil {
		return snap, err
	}
	participants, err := store.Participants(ctx)
	if err != nil {
		return snap, err
	}
	claims, err := store.Claims(ctx)
	if err != nil {
		return snap, err
	}

	snap.Header = Header{Version: Version, GameID: gameID, Phase: state.Phase, RoundsPlayed: state.RoundsPlayed}
	snap.State = state
	snap.Marker = marker
	snap.MarkerSet = set
	snap.Participants = participants
	snap.Claims = make([]ClaimV1, 0, len(claims))
	for idx, c := range claims {
		snap.Claims = append(snap.Claims, ClaimV1{Index: idx, Owner: c.Owner, ClaimedRound: c.ClaimedRound})
	}
	sort.Slice(snap.Claims, func(i, j int) bool { return snap.Claims[i].Index < snap.Claims[j].Index })
	return snap, nil
}

// Import replaces whatever game store holds with the snapshot.
func Import(ctx context.Context, store ports.Store, snap SnapshotV1) error {
	if snap.Header.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, snap.Header.Version)
	}
	if err := store.Reset(ctx, snap.State); err != nil {
		return err
	}
	claims := make(map[uint32]domain.Claim, len(snap.Claims))
	for _, c := range snap.Claims {
		claims[c.Index] = domain.Claim{Owner: c.Owner, ClaimedRound: c.ClaimedRound}
	}
	participants := domain.Registry(snap.Participants).Clone()
	if err := store.CommitRound(ctx, ports.RoundCommit{
		State:        snap.State,
		Participants: participants,
		Claims:       claims,
	}); err != nil {
		return err
	}
	if snap.MarkerSet {
		return store.PutLastAdvanced(ctx, snap.Marker)
	}
	return nil
}

// Write stores the snapshot as a JSON header line followed by a gob body,
// compressed with zstd.
func Write(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func Read(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, snap.Header.Version)
	}
	return snap, nil
}
