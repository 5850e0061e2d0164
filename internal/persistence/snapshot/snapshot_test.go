package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gridclaim/internal/domain"
	"gridclaim/internal/persistence/memory"
	"gridclaim/internal/persistence/sqlite"
	"gridclaim/internal/ports"
)

func seed(t *testing.T, store ports.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Reset(ctx, domain.Forming(0)))
	require.NoError(t, store.CommitRound(ctx, ports.RoundCommit{
		State: domain.Running(3),
		Participants: domain.Registry{
			{ID: "a", Name: "alpha", ComputeUsed: 11, Score: 3},
			{ID: "b", Name: "bravo", ComputeUsed: 4, Score: 1},
		},
		Claims: map[uint32]domain.Claim{
			5: {Owner: "a", ClaimedRound: 2},
			0: {Owner: "b", ClaimedRound: 0},
			1: {Owner: "a", ClaimedRound: 0},
		},
	}))
	require.NoError(t, store.PutLastAdvanced(ctx, 42))
}

func TestExportWriteReadImport(t *testing.T) {
	ctx := context.Background()
	src := memory.NewStore()
	seed(t, src)

	snap, err := Export(ctx, src, "game-1")
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 5}, []uint32{snap.Claims[0].Index, snap.Claims[1].Index, snap.Claims[2].Index})
	snap.Width, snap.Height, snap.Rounds = 4, 4, 8

	path := filepath.Join(t.TempDir(), "snaps", "game-1.snap.zst")
	require.NoError(t, Write(path, snap))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	require.Equal(t, snap.Header, h)

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, snap, got)

	dst, err := sqlite.Open(filepath.Join(t.TempDir(), "arena.db"), "")
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, Import(ctx, dst, got))

	state, err := dst.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Running(3), state)
	marker, set, err := dst.LastAdvanced(ctx)
	require.NoError(t, err)
	require.True(t, set)
	require.Equal(t, uint64(42), marker)
	claims, err := dst.Claims(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	reg, err := dst.Participants(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(11), reg[0].ComputeUsed)
}

func TestImportReplacesExistingGame(t *testing.T) {
	ctx := context.Background()
	src := memory.NewStore()
	require.NoError(t, src.Reset(ctx, domain.Forming(9)))
	snap, err := Export(ctx, src, "fresh")
	require.NoError(t, err)

	dst := memory.NewStore()
	seed(t, dst)
	require.NoError(t, Import(ctx, dst, snap))

	claims, err := dst.Claims(ctx)
	require.NoError(t, err)
	require.Empty(t, claims)
	state, err := dst.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Forming(9), state)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	err := Import(context.Background(), memory.NewStore(), SnapshotV1{Header: Header{Version: 99}})
	require.ErrorIs(t, err, ErrVersion)
}
