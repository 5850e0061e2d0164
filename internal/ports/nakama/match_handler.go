package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/app"
	"gridclaim/internal/bot"
	"gridclaim/internal/config"
	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	GameID    string                      `json:"game_id"`
	Opener    string                      `json:"opener"`    // Account allowed to start the game and add bots
	Tick      int64                       `json:"tick"`      // Current tick; one tick is one trigger unit
	BotCount  int                         `json:"bot_count"` // Bots added so far, used to derive identities
	Config    config.GameConfig           `json:"-"`
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	App       *app.Service                `json:"-"` // Orchestrator; nil until an opener is known
	Agents    *bot.Runtime                `json:"-"` // In-process agents of every participant
	Store     *StorageStore               `json:"-"`
	Ledger    *WalletLedger               `json:"-"`

	label     string
	destroyed bool
}

func (ms *MatchState) dimensions() domain.Field {
	return domain.Field{X: ms.Config.Width, Y: ms.Config.Height}
}

// open constructs the orchestrator for the given opener and writes the
// initial Forming state.
func (ms *MatchState) open(ctx context.Context, opener string, logger runtime.Logger) error {
	svc, err := app.NewService(ms.Config.Settings(opener), ms.Store, ms.Ledger, ms.Agents, logger)
	if err != nil {
		return err
	}
	if err := svc.Init(ctx, uint64(ms.Tick)); err != nil {
		return err
	}
	ms.Agents.Bind(svc)
	ms.App = svc
	ms.Opener = opener
	return nil
}

// shouldTerminate reports whether a match may be closed: nobody is watching
// and no game is in progress.
func shouldTerminate(presences int, phase domain.Phase) bool {
	return presences == 0 && phase != domain.PhaseRunning
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// applyParams overrides config values with match create parameters.
func applyParams(cfg config.GameConfig, params map[string]interface{}) (config.GameConfig, error) {
	for key, dst := range map[string]*uint64{
		"buy_in":         &cfg.BuyIn,
		"forming_rounds": &cfg.FormingRounds,
	} {
		if v, ok := params[key]; ok {
			n, err := paramUint(v, 64)
			if err != nil {
				return cfg, fmt.Errorf("param %s: %w", key, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*uint32{
		"width":  &cfg.Width,
		"height": &cfg.Height,
		"rounds": &cfg.Rounds,
	} {
		if v, ok := params[key]; ok {
			n, err := paramUint(v, 32)
			if err != nil {
				return cfg, fmt.Errorf("param %s: %w", key, err)
			}
			*dst = uint32(n)
		}
	}
	return cfg, cfg.Validate()
}

func paramUint(v interface{}, bits int) (uint64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("%v is not a non-negative integer", n)
		}
		return strconv.ParseUint(strconv.FormatUint(uint64(n), 10), 10, bits)
	case int:
		return strconv.ParseUint(strconv.Itoa(n), 10, bits)
	case int64:
		return strconv.ParseUint(strconv.FormatInt(n, 10), 10, bits)
	case string:
		return strconv.ParseUint(n, 10, bits)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	cfg := config.GetGameConfig()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		withEnv, err := cfg.ApplyEnv(env)
		if err != nil {
			logger.Warn("MatchInit: Ignoring runtime env overrides: %v", err)
		} else {
			cfg = withEnv
		}
	}
	cfg, err := applyParams(cfg, params)
	if err != nil {
		logger.Error("MatchInit: Invalid match params: %v", err)
		return nil, 0, ""
	}

	gameID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	if gameID == "" {
		gameID = uuid.NewString()
	}

	state := &MatchState{
		GameID:    gameID,
		Config:    cfg,
		Presences: make(map[string]runtime.Presence),
		Agents:    bot.NewRuntime(domain.Field{X: cfg.Width, Y: cfg.Height}, cfg.Costs, logger),
		Store:     NewStorageStore(nk, gameID),
		Ledger:    NewWalletLedger(nk, gameID, cfg.Wallet),
	}

	if opener, _ := params["opener"].(string); opener != "" {
		if err := state.open(ctx, opener, logger); err != nil {
			logger.Error("MatchInit: Failed to open game: %v", err)
			return nil, 0, ""
		}
	}

	label, err := buildLabel(domain.PhaseForming, true)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.label = label

	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if len(matchState.Presences) >= matchState.Config.PlayerLimit {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	matchState.Tick = tick

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
	}

	// A match created without an opener is opened by its first visitor.
	if matchState.App == nil && len(presences) > 0 {
		opener := presences[0].GetUserId()
		if err := matchState.open(ctx, opener, logger); err != nil {
			logger.Error("MatchJoin: Failed to open game for %s: %v", opener, err)
			return matchState
		}
		logger.Debug("MatchJoin: Opener set to %s.", opener)
	}

	mh.updateLabel(ctx, matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		logger.Debug("MatchLeave: User %s left.", p.GetUserId())
	}

	phase := domain.PhaseForming
	if matchState.App != nil {
		if st, err := matchState.App.Phase(ctx); err == nil {
			phase = st.Phase
		}
	}
	if shouldTerminate(len(matchState.Presences), phase) {
		logger.Info("MatchLeave: Terminating idle match %s.", matchState.GameID)
		return nil
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick
	publisher := newDispatchPublisher(dispatcher, matchState.Presences, logger)

	// Handle incoming messages
	for _, msg := range messages {
		var handle func(context.Context, *MatchState, runtime.MatchData, runtime.Logger) ([]app.Event, error)
		switch msg.GetOpCode() {
		case OpRegister:
			handle = mh.handleRegister
		case OpStart:
			handle = mh.handleStart
		case OpEnd:
			handle = mh.handleEnd
		case OpReset:
			handle = mh.handleReset
		case OpDestroy:
			handle = mh.handleDestroy
		case OpAddBots:
			handle = mh.handleAddBots
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		if matchState.App == nil {
			mh.sendError(matchState, dispatcher, logger, msg.GetUserId(), codeNotFound, ports.ErrNoGame.Error())
			continue
		}

		events, err := handle(ctx, matchState, msg, logger)
		app.Deliver(ctx, events, publisher)
		if err != nil {
			logger.Warn("MatchLoop: Op %d from %s failed: %v", msg.GetOpCode(), msg.GetUserId(), err)
			mh.sendError(matchState, dispatcher, logger, msg.GetUserId(), errorCode(err), err.Error())
		}
	}

	if matchState.destroyed {
		logger.Info("MatchLoop: Game %s destroyed, terminating match.", matchState.GameID)
		return nil
	}
	if matchState.App != nil {
		mh.advance(ctx, matchState, publisher, logger)
		mh.updateLabel(ctx, matchState, dispatcher, logger)
	}
	return matchState
}

// advance plays one round per tick while the game runs and settles the game
// once every round was played. A failed settlement is retried on later ticks.
func (mh *matchHandler) advance(ctx context.Context, state *MatchState, publisher app.Publisher, logger runtime.Logger) {
	current, err := state.App.Phase(ctx)
	if err != nil || current.Phase != domain.PhaseRunning {
		return
	}

	call := app.Call{Caller: systemCaller, Unit: uint64(state.Tick)}
	if current.RoundsPlayed < state.App.TotalRounds() {
		events, err := state.App.SubmitTurn(ctx, call)
		switch {
		case errors.Is(err, app.ErrDuplicateTrigger):
			// The game started in this tick.
			return
		case err != nil:
			logger.Error("advance: Round failed at tick %d: %v", state.Tick, err)
			return
		}
		app.Deliver(ctx, events, publisher)

		if running, err := state.App.IsRunning(ctx); err != nil || running {
			return
		}
	}

	events, err := state.App.End(ctx, call)
	if err != nil {
		logger.Error("advance: Failed to settle game: %v", err)
		return
	}
	app.Deliver(ctx, events, publisher)
}

// enroll collects the stake, registers the agent's participant and hosts the
// agent. A failed registration refunds the stake.
func (mh *matchHandler) enroll(ctx context.Context, state *MatchState, agent *bot.Agent, caller string, logger runtime.Logger) ([]app.Event, error) {
	buyIn := state.App.BuyIn()
	if err := state.Ledger.Collect(ctx, agent.ID, buyIn); err != nil {
		return nil, fmt.Errorf("collect stake: %w", err)
	}

	call := app.Call{Caller: caller, Unit: uint64(state.Tick), Value: buyIn}
	events, err := state.App.Register(ctx, call, agent.ID, agent.Name)
	if err != nil {
		if refundErr := state.Ledger.Transfer(ctx, agent.ID, buyIn); refundErr != nil {
			logger.Error("enroll: Failed to refund %d to %s: %v", buyIn, agent.ID, refundErr)
		}
		return nil, err
	}

	// A participant of a previous game may still be hosted.
	state.Agents.Remove(agent.ID)
	if err := state.Agents.Add(agent); err != nil {
		logger.Error("enroll: Failed to host agent %s: %v", agent.ID, err)
	}
	return events, nil
}

func (mh *matchHandler) handleRegister(ctx context.Context, state *MatchState, msg runtime.MatchData, logger runtime.Logger) ([]app.Event, error) {
	req, err := decodeRequest(msg.GetData())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrInvalid, err)
	}
	name := stringField(req, "name")
	if name == "" {
		name = msg.GetUsername()
	}
	strategy := bot.Strategy(stringField(req, "strategy"))
	if strategy == "" {
		strategy = bot.StrategySweeper
	}

	identity := bot.Identity{ID: msg.GetUserId(), Name: name, Strategy: strategy}
	agent, err := bot.Spawn(identity, state.dimensions(), rand.Int63())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrInvalid, err)
	}

	logger.Info("Register: User %s joins as %q playing %s", identity.ID, name, strategy)
	return mh.enroll(ctx, state, agent, identity.ID, logger)
}

// handleAddBots lets the opener fill the game with in-process bots. The
// opener pays their stakes.
func (mh *matchHandler) handleAddBots(ctx context.Context, state *MatchState, msg runtime.MatchData, logger runtime.Logger) ([]app.Event, error) {
	sender := msg.GetUserId()
	if sender != state.Opener {
		return nil, fmt.Errorf("%w: only the opener can add bots", app.ErrUnauthorized)
	}
	req, err := decodeRequest(msg.GetData())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrInvalid, err)
	}
	count := intField(req, "count")
	if count <= 0 {
		count = 1
	}
	strategy := bot.Strategy(stringField(req, "strategy"))

	var events []app.Event
	for i := 0; i < count; i++ {
		identity := bot.NewIdentity(state.BotCount, strategy)
		agent, err := bot.Spawn(identity, state.dimensions(), rand.Int63())
		if err != nil {
			return events, fmt.Errorf("%w: %v", app.ErrInvalid, err)
		}
		state.Ledger.Sponsor(identity.ID, sender)

		evs, err := mh.enroll(ctx, state, agent, sender, logger)
		if err != nil {
			return events, err
		}
		state.BotCount++
		events = append(events, evs...)
		logger.Info("AddBots: Added bot %s (%s) sponsored by %s", identity.Name, identity.ID, sender)
	}
	return events, nil
}

func (mh *matchHandler) handleStart(ctx context.Context, state *MatchState, msg runtime.MatchData, logger runtime.Logger) ([]app.Event, error) {
	return state.App.Start(ctx, app.Call{Caller: msg.GetUserId(), Unit: uint64(state.Tick)})
}

func (mh *matchHandler) handleEnd(ctx context.Context, state *MatchState, msg runtime.MatchData, logger runtime.Logger) ([]app.Event, error) {
	return state.App.End(ctx, app.Call{Caller: msg.GetUserId(), Unit: uint64(state.Tick)})
}

func (mh *matchHandler) handleReset(ctx context.Context, state *MatchState, msg runtime.MatchData, logger runtime.Logger) ([]app.Event, error) {
	events, err := state.App.Reset(ctx, app.Call{Caller: msg.GetUserId(), Unit: uint64(state.Tick)})
	if err != nil {
		return nil, err
	}
	state.Agents.ResetAll()
	return events, nil
}

func (mh *matchHandler) handleDestroy(ctx context.Context, state *MatchState, msg runtime.MatchData, logger runtime.Logger) ([]app.Event, error) {
	events, err := state.App.Destroy(ctx, app.Call{Caller: msg.GetUserId(), Unit: uint64(state.Tick)})
	if err != nil {
		return nil, err
	}
	state.destroyed = true
	return events, nil
}

// sendError sends an OpError message to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := encodeError(code, message)
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	if err := dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Warn("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.App == nil {
		return
	}
	current, err := state.App.Phase(ctx)
	if err != nil {
		logger.Error("UpdateLabel: Failed to read phase: %v", err)
		return
	}
	open := false
	if current.Phase == domain.PhaseForming {
		ranked, err := state.App.Ranked(ctx)
		if err != nil {
			logger.Error("UpdateLabel: Failed to read participants: %v", err)
			return
		}
		open = len(ranked) < state.Config.PlayerLimit
	}

	label, err := buildLabel(current.Phase, open)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.label = label
}

// ClaimView is one claimed field in a GameView.
type ClaimView struct {
	X     uint32 `json:"x"`
	Y     uint32 `json:"y"`
	Owner string `json:"owner"`
	Round uint32 `json:"round"`
}

// GameView is the read-only view returned by the state signal and RPC.
type GameView struct {
	GameID      string          `json:"game_id"`
	Opener      string          `json:"opener"`
	State       domain.State    `json:"state"`
	Width       uint32          `json:"width"`
	Height      uint32          `json:"height"`
	BuyIn       uint64          `json:"buy_in"`
	Rounds      uint32          `json:"rounds"`
	RoundBudget uint64          `json:"round_budget"`
	BatchCount  uint32          `json:"batch_count"`
	GameBudget  uint64          `json:"game_budget"`
	Ranking     domain.Registry `json:"ranking"`
	Claims      []ClaimView     `json:"claims"`
}

func buildView(ctx context.Context, state *MatchState) (GameView, error) {
	svc := state.App
	if svc == nil {
		return GameView{}, ports.ErrNoGame
	}
	current, err := svc.Phase(ctx)
	if err != nil {
		return GameView{}, err
	}
	view := GameView{
		GameID: state.GameID,
		Opener: state.Opener,
		State:  current,
		Width:  svc.Dimensions().X,
		Height: svc.Dimensions().Y,
		BuyIn:  svc.BuyIn(),
		Rounds: svc.TotalRounds(),
		Claims: []ClaimView{},
	}
	if view.RoundBudget, err = svc.RoundBudget(ctx); err != nil {
		return GameView{}, err
	}
	if view.BatchCount, err = svc.BatchCount(ctx); err != nil {
		return GameView{}, err
	}
	if view.GameBudget, err = svc.GameBudget(ctx); err != nil {
		return GameView{}, err
	}
	if view.Ranking, err = svc.Ranked(ctx); err != nil {
		return GameView{}, err
	}
	board, err := svc.Board(ctx)
	if err != nil {
		return GameView{}, err
	}
	dims := svc.Dimensions()
	for idx, claim := range board {
		if claim == nil {
			continue
		}
		coord := dims.Coord(uint32(idx))
		view.Claims = append(view.Claims, ClaimView{X: coord.X, Y: coord.Y, Owner: claim.Owner, Round: claim.ClaimedRound})
	}
	return view, nil
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

// MatchSignal answers the state signal with the JSON encoded GameView.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != signalState {
		return state, ""
	}
	view, err := buildView(ctx, matchState)
	if err != nil {
		logger.Warn("MatchSignal: %v", err)
		return state, ""
	}
	raw, err := json.Marshal(view)
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal view: %v", err)
		return state, ""
	}
	return state, string(raw)
}
