// Package arena runs one game headless: in-process bots and remote agents
// enrolled from the config, one trigger unit per tick until settlement.
package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/app"
	"gridclaim/internal/bot"
	"gridclaim/internal/config"
	"gridclaim/internal/domain"
	"gridclaim/internal/persistence/memory"
	"gridclaim/internal/ports"
)

// Opener is the account that opens, starts and ends arena games.
const Opener = "arena"

// Router sends each participant's turn to whichever caller hosts it.
type Router struct {
	bots   *bot.Runtime
	remote ports.AgentCaller
}

// NewRouter routes hosted bots to bots and everyone else to remote, which
// may be nil.
func NewRouter(bots *bot.Runtime, remote ports.AgentCaller) *Router {
	return &Router{bots: bots, remote: remote}
}

func (r *Router) Propose(ctx context.Context, id string, snapshot domain.RoundSnapshot, limit uint64) ports.Reply {
	if r.bots.Has(id) {
		return r.bots.Propose(ctx, id, snapshot, limit)
	}
	if r.remote != nil {
		return r.remote.Propose(ctx, id, snapshot, limit)
	}
	return ports.Reply{Err: fmt.Errorf("%w: %s", bot.ErrUnknownAgent, id)}
}

type Arena struct {
	cfg        config.GameConfig
	svc        *app.Service
	store      ports.Store
	ledger     *memory.Ledger
	bots       *bot.Runtime
	publishers []app.Publisher
	logger     runtime.Logger
}

// New builds the orchestrator over store and writes the initial state unless
// store already holds a game. remote may be nil.
func New(ctx context.Context, cfg config.GameConfig, store ports.Store, remote ports.AgentCaller, logger runtime.Logger, publishers ...app.Publisher) (*Arena, error) {
	dims := domain.Field{X: cfg.Width, Y: cfg.Height}
	bots := bot.NewRuntime(dims, cfg.Costs, logger)
	ledger := memory.NewLedger()

	svc, err := app.NewService(cfg.Settings(Opener), store, ledger, NewRouter(bots, remote), logger)
	if err != nil {
		return nil, err
	}
	bots.Bind(svc)
	if err := svc.Init(ctx, 0); err != nil {
		return nil, err
	}
	return &Arena{
		cfg:        cfg,
		svc:        svc,
		store:      store,
		ledger:     ledger,
		bots:       bots,
		publishers: publishers,
		logger:     logger,
	}, nil
}

func (a *Arena) Service() *app.Service  { return a.svc }
func (a *Arena) Ledger() *memory.Ledger { return a.ledger }

// Enroll hosts the configured bots and, while the game is forming, registers
// them and the configured remote agents. On a resumed game the registry is
// already stored and only the bots are hosted again.
func (a *Arena) Enroll(ctx context.Context) error {
	state, err := a.svc.Phase(ctx)
	if err != nil {
		return err
	}
	forming := state.Phase == domain.PhaseForming
	dims := a.svc.Dimensions()

	index := 0
	for _, group := range a.cfg.Bots {
		for i := 0; i < group.Count; i++ {
			identity := bot.NewIdentity(index, group.Strategy)
			agent, err := bot.Spawn(identity, dims, int64(index))
			if err != nil {
				return err
			}
			index++
			if a.bots.Has(agent.ID) {
				continue
			}
			if err := a.bots.Add(agent); err != nil {
				return err
			}
			if forming {
				if err := a.register(ctx, agent.ID, agent.Name); err != nil {
					return err
				}
			}
		}
	}
	if state.Phase == domain.PhaseRunning {
		return a.escrowResumed(ctx)
	}
	if !forming {
		return nil
	}
	for _, remote := range a.cfg.RemoteAgents {
		if err := a.register(ctx, remote.ID, remote.Name); err != nil {
			return err
		}
	}
	return nil
}

// escrowResumed refills the process-local pot of a game resumed from
// storage so that settlement can pay it out.
func (a *Arena) escrowResumed(ctx context.Context) error {
	participants, err := a.svc.Ranked(ctx)
	if err != nil {
		return err
	}
	buyIn := a.svc.BuyIn()
	for _, p := range participants {
		a.ledger.Fund(p.ID, buyIn)
		if err := a.ledger.Collect(ctx, p.ID, buyIn); err != nil {
			return err
		}
	}
	return nil
}

// register stakes the buy-in on the participant's behalf and registers it.
func (a *Arena) register(ctx context.Context, id, name string) error {
	buyIn := a.svc.BuyIn()
	a.ledger.Fund(id, buyIn)
	if err := a.ledger.Collect(ctx, id, buyIn); err != nil {
		return err
	}
	events, err := a.svc.Register(ctx, app.Call{Caller: id, Value: buyIn}, id, name)
	if err != nil {
		if refundErr := a.ledger.Transfer(ctx, id, buyIn); refundErr != nil {
			a.logger.Error("register: Failed to refund %s: %v", id, refundErr)
		}
		return fmt.Errorf("register %s: %w", id, err)
	}
	app.Deliver(ctx, events, a.publishers...)
	return nil
}

// Run drives the game to settlement, one unit per tick, and returns the final
// ranking. A zero tick plays without waiting.
func (a *Arena) Run(ctx context.Context, tick time.Duration) (domain.Registry, error) {
	marker, _, err := a.store.LastAdvanced(ctx)
	if err != nil {
		return nil, err
	}
	unit := marker + 1

	var ticks <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	call := func(u uint64) app.Call { return app.Call{Caller: Opener, Unit: u} }
	for {
		state, err := a.svc.Phase(ctx)
		if err != nil {
			return nil, err
		}

		var events []app.Event
		switch {
		case state.Phase == domain.PhaseForming:
			events, err = a.svc.Start(ctx, call(unit))
			if errors.Is(err, app.ErrTooEarly) {
				a.logger.Debug("Run: Waiting for unit %d to start, now %d", state.EarliestStart, unit)
				err = nil
			}
		case state.Phase == domain.PhaseRunning && state.RoundsPlayed >= a.svc.TotalRounds():
			events, err = a.svc.End(ctx, call(unit))
		case state.Phase == domain.PhaseRunning:
			events, err = a.svc.SubmitTurn(ctx, call(unit))
		default:
			return a.svc.Ranked(ctx)
		}
		if err != nil {
			return nil, err
		}
		app.Deliver(ctx, events, a.publishers...)
		unit++

		if ticks == nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticks:
		}
	}
}
