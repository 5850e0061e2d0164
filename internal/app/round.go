package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

// roundTx collects the claims of one round until it is committed.
type roundTx struct {
	round  uint32
	claims map[uint32]domain.Claim
}

// SubmitTurn advances the game by one round. At most one round may advance
// per time unit; the marker is persisted before any agent runs so a
// reentrant trigger from inside an agent is rejected. A round that fails
// after that point puts the previous marker back.
func (s *Service) SubmitTurn(ctx context.Context, call Call) (events []Event, err error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != domain.PhaseRunning {
		return nil, ErrNotRunning
	}
	if state.RoundsPlayed >= s.settings.Rounds {
		return nil, ErrRoundsExhausted
	}
	last, set, err := s.store.LastAdvanced(ctx)
	if err != nil {
		return nil, fmt.Errorf("load marker: %w", err)
	}
	if !set {
		return nil, ErrMarkerUnset
	}
	if last >= call.Unit {
		return nil, ErrDuplicateTrigger
	}
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutLastAdvanced(ctx, call.Unit); err != nil {
		return nil, fmt.Errorf("store marker: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if restoreErr := s.store.PutLastAdvanced(context.WithoutCancel(ctx), last); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore marker %d: %w", last, restoreErr))
		}
	}()

	current := state.RoundsPlayed
	n := len(participants)
	batches := domain.BatchCount(n)
	limit := domain.RoundBudget(s.settings.TotalBudget, n)
	lifetime := domain.GameBudget(limit, s.settings.Rounds)
	snapshot := domain.NewRoundSnapshot(current, participants)

	tx := &roundTx{round: current, claims: make(map[uint32]domain.Claim)}
	s.round = tx
	defer func() { s.round = nil }()

	events = make([]Event, 0, n+1)
	for idx := range participants {
		if !domain.InBatch(idx, current, batches) {
			continue
		}
		p := &participants[idx]

		left := domain.SaturatingSub(lifetime, p.ComputeUsed)
		if left == 0 {
			events = append(events, turnTaken(p.ID, current, domain.BudgetExhausted()))
			continue
		}

		view := snapshot
		view.BudgetLeft = left
		view.Scores = slices.Clone(snapshot.Scores)

		reply := s.invoke(ctx, p.ID, view, limit)
		p.ComputeUsed = domain.SaturatingAdd(p.ComputeUsed, reply.Used)

		outcome, err := s.resolve(ctx, tx, p, reply)
		if err != nil {
			return nil, err
		}
		events = append(events, turnTaken(p.ID, current, outcome))
	}

	state.RoundsPlayed = current + 1
	if err := s.store.CommitRound(ctx, ports.RoundCommit{
		State:        state,
		Participants: participants,
		Claims:       tx.claims,
	}); err != nil {
		return nil, fmt.Errorf("commit round %d: %w", current, err)
	}

	events = append(events, Event{
		Kind:    EventRoundIncremented,
		Payload: RoundIncrementedPayload{RoundsPlayed: state.RoundsPlayed},
	})
	return events, nil
}

// invoke asks one agent for a move. A panicking agent or one reporting more
// compute than allowed is charged the full limit and yields a failed reply.
func (s *Service) invoke(ctx context.Context, id string, view domain.RoundSnapshot, limit uint64) (reply ports.Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = ports.Reply{Used: limit, Err: fmt.Errorf("%w: %v", ErrAgentPanicked, r)}
		}
	}()

	reply = s.agents.Propose(ctx, id, view, limit)
	if reply.Used > limit {
		reply = ports.Reply{Used: limit, Err: fmt.Errorf("%w: used %d of %d", ErrBudgetOverrun, reply.Used, limit)}
	}
	return reply
}

func (s *Service) resolve(ctx context.Context, tx *roundTx, p *domain.Participant, reply ports.Reply) (domain.TurnOutcome, error) {
	switch {
	case reply.Err != nil:
		if s.logger != nil {
			s.logger.WithField("participant", p.ID).Debug("Agent broken in round %d: %v", tx.round, reply.Err)
		}
		return domain.BrokenAgent(), nil
	case reply.Move == nil:
		return domain.NoMove(), nil
	}

	move := *reply.Move
	dims := s.settings.Dimensions
	if !dims.Contains(move) {
		return domain.OutOfBounds(move), nil
	}
	idx, _ := dims.Index(move)

	claim, taken, err := s.claimAt(ctx, idx)
	if err != nil {
		return domain.TurnOutcome{}, fmt.Errorf("load field %d: %w", idx, err)
	}
	if taken {
		return domain.Occupied(move, claim.Owner), nil
	}

	tx.claims[idx] = domain.Claim{Owner: p.ID, ClaimedRound: tx.round}
	p.Score = domain.SaturatingAdd(p.Score, domain.ClaimScore(tx.round))
	return domain.Success(move), nil
}

// claimAt reads a board cell, preferring claims of the round in flight.
func (s *Service) claimAt(ctx context.Context, idx uint32) (domain.Claim, bool, error) {
	if s.round != nil {
		if c, ok := s.round.claims[idx]; ok {
			return c, true, nil
		}
	}
	return s.store.Claim(ctx, idx)
}

func turnTaken(id string, round uint32, outcome domain.TurnOutcome) Event {
	return Event{
		Kind: EventTurnTaken,
		Payload: TurnTakenPayload{
			ParticipantID: id,
			Round:         round,
			Outcome:       outcome,
		},
	}
}
