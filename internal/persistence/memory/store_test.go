package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

func TestStoreWithoutGame(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.State(ctx)
	require.ErrorIs(t, err, ports.ErrNoGame)
	_, err = s.Participants(ctx)
	require.ErrorIs(t, err, ports.ErrNoGame)
	require.ErrorIs(t, s.PutLastAdvanced(ctx, 1), ports.ErrNoGame)
}

func TestStoreCommitNeverOverwritesClaims(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Reset(ctx, domain.Forming(0)))

	require.NoError(t, s.CommitRound(ctx, ports.RoundCommit{
		State:  domain.Running(1),
		Claims: map[uint32]domain.Claim{3: {Owner: "a", ClaimedRound: 0}},
	}))
	require.NoError(t, s.CommitRound(ctx, ports.RoundCommit{
		State:  domain.Running(2),
		Claims: map[uint32]domain.Claim{3: {Owner: "b", ClaimedRound: 1}},
	}))

	c, ok, err := s.Claim(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", c.Owner)

	state, err := s.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Running(2), state)
}

func TestStoreCopiesParticipants(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Reset(ctx, domain.Forming(0)))

	reg := domain.Registry{{ID: "a", Name: "alpha"}}
	require.NoError(t, s.PutParticipants(ctx, reg))
	reg[0].Score = 99

	got, err := s.Participants(ctx)
	require.NoError(t, err)
	require.Zero(t, got[0].Score)
}

func TestStoreResetAndDrop(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Reset(ctx, domain.Forming(0)))
	require.NoError(t, s.PutLastAdvanced(ctx, 42))
	require.NoError(t, s.CommitRound(ctx, ports.RoundCommit{
		State:        domain.Finished("a"),
		Participants: domain.Registry{{ID: "a", Name: "alpha"}},
		Claims:       map[uint32]domain.Claim{0: {Owner: "a"}},
	}))

	require.NoError(t, s.Reset(ctx, domain.Forming(7)))
	marker, set, err := s.LastAdvanced(ctx)
	require.NoError(t, err)
	require.True(t, set)
	require.Zero(t, marker)
	claims, err := s.Claims(ctx)
	require.NoError(t, err)
	require.Empty(t, claims)
	reg, err := s.Participants(ctx)
	require.NoError(t, err)
	require.Empty(t, reg)

	require.NoError(t, s.Drop(ctx))
	_, err = s.State(ctx)
	require.ErrorIs(t, err, ports.ErrNoGame)
}

func TestLedgerTransferIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	l.Fund("a", 10)

	require.NoError(t, l.Collect(ctx, "a", 6))
	require.ErrorIs(t, l.Collect(ctx, "a", 6), ErrInsufficientFunds)
	require.Equal(t, uint64(4), l.Balance("a"))
	require.Equal(t, uint64(6), l.Pot())

	require.ErrorIs(t, l.Transfer(ctx, "b", 7), ErrPotShort)
	require.Zero(t, l.Balance("b"))
	require.NoError(t, l.Transfer(ctx, "b", 6))
	require.Equal(t, uint64(6), l.Balance("b"))
	require.Zero(t, l.Pot())
}
