package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

var (
	ErrUnknownAgent = errors.New("no in-process agent with this id")
	ErrCrashed      = errors.New("bot crashed")
)

// Runtime hosts in-process agents and implements ports.AgentCaller for them.
type Runtime struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	dims   domain.Field
	board  Board
	costs  Costs
	logger runtime.Logger
}

// NewRuntime constructs an empty runtime for a board of the given
// dimensions. logger may be nil.
func NewRuntime(dims domain.Field, costs Costs, logger runtime.Logger) *Runtime {
	return &Runtime{
		agents: make(map[string]*Agent),
		dims:   dims,
		costs:  costs,
		logger: logger,
	}
}

// Bind sets the board read path handed to bots. It is set after the
// orchestrator exists because the orchestrator needs the runtime first.
func (r *Runtime) Bind(board Board) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.board = board
}

func (r *Runtime) Add(agent *Agent) error {
	if agent == nil || agent.ID == "" {
		return errors.New("agent id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agent.ID]; exists {
		return fmt.Errorf("agent %s already hosted", agent.ID)
	}
	r.agents[agent.ID] = agent
	return nil
}

func (r *Runtime) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

func (r *Runtime) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[id]
	return ok
}

// IDs returns the hosted agent ids in sorted order.
func (r *Runtime) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResetAll clears the memory of every hosted agent after a game reset.
func (r *Runtime) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		a.OnGameReset()
	}
}

// Propose runs one bot turn under a meter capped at limit. A crashing bot is
// charged the full limit.
func (r *Runtime) Propose(ctx context.Context, id string, snapshot domain.RoundSnapshot, limit uint64) (reply ports.Reply) {
	r.mu.RLock()
	agent := r.agents[id]
	board := r.board
	r.mu.RUnlock()
	if agent == nil {
		return ports.Reply{Err: fmt.Errorf("%w: %s", ErrUnknownAgent, id)}
	}

	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.WithField("agent", id).Debug("Bot crashed: %v", rec)
			}
			reply = ports.Reply{Used: limit, Err: fmt.Errorf("%w: %v", ErrCrashed, rec)}
		}
	}()

	meter := NewMeter(limit)
	if err := meter.Charge(r.costs.Call); err != nil {
		return ports.Reply{Used: meter.Used(), Err: err}
	}
	turn := &Turn{
		ctx:        ctx,
		Snapshot:   snapshot,
		Dimensions: r.dims,
		meter:      meter,
		board:      board,
		costs:      r.costs,
	}
	move, err := agent.Play(turn)
	return ports.Reply{Move: move, Used: meter.Used(), Err: err}
}
