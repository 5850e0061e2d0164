package bot

import (
	"context"
	"errors"
	"testing"

	"gridclaim/internal/app"
	"gridclaim/internal/domain"
	"gridclaim/internal/persistence/memory"
)

func TestMeter(t *testing.T) {
	m := NewMeter(10)
	if err := m.Charge(4); err != nil {
		t.Fatalf("Charge(4): %v", err)
	}
	if m.Left() != 6 {
		t.Fatalf("Left() = %d, want 6", m.Left())
	}
	if err := m.Charge(7); !errors.Is(err, ErrOutOfCompute) {
		t.Fatalf("Charge(7) err = %v", err)
	}
	if m.Used() != 10 {
		t.Fatalf("Used() = %d, want 10", m.Used())
	}
}

func TestRuntimeIsolatesCrashes(t *testing.T) {
	rt := NewRuntime(domain.Field{X: 4, Y: 4}, DefaultCosts, nil)
	if err := rt.Add(&Agent{ID: "bot-faulty", Name: "faulty", Strategy: FaultyBot{}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	reply := rt.Propose(context.Background(), "bot-faulty", domain.RoundSnapshot{}, 5_000_000)
	if !errors.Is(reply.Err, ErrCrashed) {
		t.Fatalf("err = %v, want crashed", reply.Err)
	}
	if reply.Used != 5_000_000 {
		t.Fatalf("used = %d, want full limit", reply.Used)
	}
}

func TestRuntimeChargesCallCost(t *testing.T) {
	rt := NewRuntime(domain.Field{X: 4, Y: 4}, DefaultCosts, nil)
	_ = rt.Add(&Agent{ID: "idle", Strategy: IdleBot{}})

	reply := rt.Propose(context.Background(), "idle", domain.RoundSnapshot{}, 1<<30)
	if reply.Err != nil || reply.Move != nil {
		t.Fatalf("reply = %+v, want empty move", reply)
	}
	if reply.Used != DefaultCosts.Call {
		t.Fatalf("used = %d, want %d", reply.Used, DefaultCosts.Call)
	}

	reply = rt.Propose(context.Background(), "idle", domain.RoundSnapshot{}, DefaultCosts.Call-1)
	if !errors.Is(reply.Err, ErrOutOfCompute) || reply.Used != DefaultCosts.Call-1 {
		t.Fatalf("reply = %+v, want out of compute at limit", reply)
	}

	reply = rt.Propose(context.Background(), "ghost", domain.RoundSnapshot{}, 1<<30)
	if !errors.Is(reply.Err, ErrUnknownAgent) {
		t.Fatalf("err = %v, want unknown agent", reply.Err)
	}
}

type brainFunc func(turn *Turn) (*domain.Field, error)

func (f brainFunc) Propose(turn *Turn) (*domain.Field, error) { return f(turn) }

func TestMeterOnlyCountsReportedWork(t *testing.T) {
	rt := NewRuntime(domain.Field{X: 4, Y: 4}, DefaultCosts, nil)
	silent := brainFunc(func(*Turn) (*domain.Field, error) {
		sum := 0
		for i := 0; i < 1000; i++ {
			sum += i
		}
		return &domain.Field{X: uint32(sum % 4)}, nil
	})
	reporting := brainFunc(func(turn *Turn) (*domain.Field, error) {
		for i := 0; i < 1000; i++ {
			if err := turn.Step(); err != nil {
				return nil, err
			}
		}
		return &domain.Field{}, nil
	})
	_ = rt.Add(&Agent{ID: "silent", Strategy: silent})
	_ = rt.Add(&Agent{ID: "reporting", Strategy: reporting})

	limit := DefaultCosts.Call + 10*DefaultCosts.Step
	reply := rt.Propose(context.Background(), "silent", domain.RoundSnapshot{}, limit)
	if reply.Err != nil || reply.Move == nil || reply.Used != DefaultCosts.Call {
		t.Fatalf("silent reply = %+v, want a move charged only the call cost", reply)
	}

	reply = rt.Propose(context.Background(), "reporting", domain.RoundSnapshot{}, limit)
	if !errors.Is(reply.Err, ErrOutOfCompute) || reply.Used != limit {
		t.Fatalf("reporting reply = %+v, want out of compute at limit", reply)
	}
}

func TestRuntimeRejectsDuplicates(t *testing.T) {
	rt := NewRuntime(domain.Field{X: 1, Y: 1}, DefaultCosts, nil)
	if err := rt.Add(&Agent{ID: "a", Strategy: IdleBot{}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := rt.Add(&Agent{ID: "a", Strategy: IdleBot{}}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	rt.Remove("a")
	if rt.Has("a") {
		t.Fatalf("Remove left agent hosted")
	}
}

func TestBotsPlayFullGame(t *testing.T) {
	ctx := context.Background()
	dims := domain.Field{X: 6, Y: 6}
	settings := app.DefaultSettings("opener")
	settings.Dimensions = dims
	settings.Rounds = 8

	rt := NewRuntime(dims, DefaultCosts, nil)
	store := memory.NewStore()
	svc, err := app.NewService(settings, store, memory.NewLedger(), rt, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	rt.Bind(svc)
	if err := svc.Init(ctx, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}

	roster := []Strategy{StrategySweeper, StrategyScout, StrategyIdle, StrategyWild, StrategyFaulty}
	for i, s := range roster {
		id := NewIdentity(i, s)
		agent, err := Spawn(id, dims, int64(i))
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if err := rt.Add(agent); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if _, err := svc.Register(ctx, app.Call{Caller: id.ID}, id.ID, id.Name); err != nil {
			t.Fatalf("Register %s: %v", id.Name, err)
		}
	}
	if _, err := svc.Start(ctx, app.Call{Caller: "opener"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	exhausted := 0
	for unit := uint64(1); unit <= uint64(settings.Rounds); unit++ {
		evs, err := svc.SubmitTurn(ctx, app.Call{Unit: unit})
		if err != nil {
			t.Fatalf("SubmitTurn %d: %v", unit, err)
		}
		for _, ev := range evs {
			if ev.Kind != app.EventTurnTaken {
				continue
			}
			p := ev.Payload.(app.TurnTakenPayload)
			if p.ParticipantID == NewIdentity(4, StrategyFaulty).ID && p.Outcome.Kind == domain.OutcomeBudgetExhausted {
				exhausted++
			}
		}
	}
	// The faulty bot burns its whole per-round budget each call and the
	// lifetime budget covers two calls.
	if exhausted != int(settings.Rounds)-2 {
		t.Fatalf("faulty bot exhausted %d times, want %d", exhausted, settings.Rounds-2)
	}

	ranked, err := svc.Ranked(ctx)
	if err != nil {
		t.Fatalf("Ranked: %v", err)
	}
	for _, p := range ranked {
		switch p.ID {
		case NewIdentity(2, StrategyIdle).ID, NewIdentity(3, StrategyWild).ID, NewIdentity(4, StrategyFaulty).ID:
			if p.Score != 0 {
				t.Fatalf("%s scored %d", p.Name, p.Score)
			}
		}
	}
	if ranked[0].Score == 0 {
		t.Fatalf("no bot scored: %+v", ranked)
	}

	if _, err := svc.End(ctx, app.Call{}); err != nil {
		t.Fatalf("End: %v", err)
	}
}
