package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

// Settings are the immutable parameters of one game, fixed at construction.
type Settings struct {
	Dimensions    domain.Field
	BuyIn         uint64
	FormingRounds uint64
	Rounds        uint32
	Opener        string
	PlayerLimit   int
	NameMin       int
	NameMax       int
	TotalBudget   uint64
}

// DefaultSettings returns a 16x16 free game of 64 rounds.
func DefaultSettings(opener string) Settings {
	return Settings{
		Dimensions:  domain.Field{X: 16, Y: 16},
		Rounds:      64,
		Opener:      opener,
		PlayerLimit: domain.PlayerLimit,
		NameMin:     domain.NameMinLen,
		NameMax:     domain.NameMaxLen,
		TotalBudget: domain.TotalBudget,
	}
}

// Validate checks that the settings describe a playable game.
func (s Settings) Validate() error {
	switch {
	case s.Dimensions.X == 0 || s.Dimensions.Y == 0:
		return fmt.Errorf("%w: board dimensions must be positive", ErrInvalid)
	case s.Dimensions.Area() > MaxBoardArea:
		return fmt.Errorf("%w: board area %d exceeds %d", ErrInvalid, s.Dimensions.Area(), MaxBoardArea)
	case s.Rounds == 0:
		return fmt.Errorf("%w: rounds must be positive", ErrInvalid)
	case s.PlayerLimit <= 0:
		return fmt.Errorf("%w: player limit must be positive", ErrInvalid)
	case s.NameMin < 0 || s.NameMax < s.NameMin:
		return fmt.Errorf("%w: name length bounds %d..%d", ErrInvalid, s.NameMin, s.NameMax)
	case s.Opener == "":
		return fmt.Errorf("%w: opener is required", ErrInvalid)
	}
	return nil
}

// Call is the environment of one operation: who invokes it, the current
// external time unit and the stake transferred with it.
type Call struct {
	Caller string
	Unit   uint64
	Value  uint64
}

// Service orchestrates one game. It is not safe for concurrent use; callers
// serialize operations the way the match loop does.
type Service struct {
	settings Settings
	store    ports.Store
	ledger   ports.Ledger
	agents   ports.AgentCaller
	logger   runtime.Logger

	// round holds the claims of the round being resolved.
	round *roundTx
}

// NewService constructs a Service. logger may be nil.
func NewService(settings Settings, store ports.Store, ledger ports.Ledger, agents ports.AgentCaller, logger runtime.Logger) (*Service, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if store == nil || ledger == nil || agents == nil {
		return nil, errors.New("store, ledger and agent caller are required")
	}
	return &Service{
		settings: settings,
		store:    store,
		ledger:   ledger,
		agents:   agents,
		logger:   logger,
	}, nil
}

// Settings returns the parameters the game was constructed with.
func (s *Service) Settings() Settings { return s.settings }

// Init writes the initial Forming state unless the store already holds a game.
func (s *Service) Init(ctx context.Context, unit uint64) error {
	_, err := s.store.State(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ports.ErrNoGame) {
		return fmt.Errorf("load state: %w", err)
	}
	earliest := domain.SaturatingAdd(unit, s.settings.FormingRounds)
	if err := s.store.Reset(ctx, domain.Forming(earliest)); err != nil {
		return fmt.Errorf("init game: %w", err)
	}
	return nil
}

// Register adds a participant while the game is forming.
func (s *Service) Register(ctx context.Context, call Call, id, name string) ([]Event, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != domain.PhaseForming {
		return nil, ErrNotForming
	}
	if id == "" {
		return nil, ErrMissingID
	}
	if len(name) < s.settings.NameMin || len(name) > s.settings.NameMax {
		return nil, ErrNameLength
	}
	if call.Value != s.settings.BuyIn {
		return nil, ErrWrongBuyIn
	}

	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	if len(participants) >= s.settings.PlayerLimit {
		return nil, ErrCapacity
	}
	idx, found := participants.Find(id)
	if found {
		return nil, ErrDuplicateParticipant
	}
	if participants.NameTaken(name) {
		return nil, ErrNameTaken
	}

	participants = participants.Insert(idx, domain.Participant{ID: id, Name: name})
	if err := s.store.PutParticipants(ctx, participants); err != nil {
		return nil, fmt.Errorf("store participants: %w", err)
	}

	return []Event{{
		Kind:    EventPlayerRegistered,
		Payload: PlayerRegisteredPayload{ParticipantID: id, Name: name},
	}}, nil
}

// Start moves a forming game to Running. Only the opener may start, not
// before the earliest start unit and not without participants.
func (s *Service) Start(ctx context.Context, call Call) ([]Event, error) {
	if call.Caller != s.settings.Opener {
		return nil, ErrNotOpener
	}
	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != domain.PhaseForming {
		return nil, ErrAlreadyStarted
	}
	if call.Unit < state.EarliestStart {
		return nil, ErrTooEarly
	}
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	if len(participants) < MinPlayersToStartGame {
		return nil, ErrNoParticipants
	}

	// Marker first: a failed state write leaves the game forming.
	if err := s.store.PutLastAdvanced(ctx, call.Unit); err != nil {
		return nil, fmt.Errorf("store marker: %w", err)
	}
	if err := s.store.PutState(ctx, domain.Running(0)); err != nil {
		return nil, fmt.Errorf("store state: %w", err)
	}

	return []Event{{Kind: EventGameStarted, Payload: GameStartedPayload{Starter: call.Caller}}}, nil
}

// End settles a game that played all of its rounds: the pot goes to the
// winner and the game becomes Finished. Anyone may end a game. If Finished
// cannot be stored the payout is collected back into the pot.
func (s *Service) End(ctx context.Context, call Call) ([]Event, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != domain.PhaseRunning || state.RoundsPlayed < s.settings.Rounds {
		return nil, ErrCannotEnd
	}
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	idx, ok := participants.Winner()
	if !ok {
		return nil, ErrNoParticipants
	}
	winner := participants[idx].ID
	pot := domain.SaturatingMul(uint64(len(participants)), s.settings.BuyIn)

	if err := s.ledger.Transfer(ctx, winner, pot); err != nil {
		return nil, fmt.Errorf("pay out pot: %w", err)
	}
	if err := s.store.PutState(ctx, domain.Finished(winner)); err != nil {
		// The game stays Running, so the pot must be back in escrow for a retry.
		err = fmt.Errorf("store state: %w", err)
		if refundErr := s.ledger.Collect(context.WithoutCancel(ctx), winner, pot); refundErr != nil {
			err = errors.Join(err, fmt.Errorf("return pot from %s: %w", winner, refundErr))
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"winner": winner,
			"pot":    pot,
		}).Info("Game settled after %d rounds", state.RoundsPlayed)
	}

	return []Event{{
		Kind:    EventGameEnded,
		Payload: GameEndedPayload{Ender: call.Caller, Winner: winner, Pot: pot},
	}}, nil
}

// Reset returns a finished game to Forming with an empty board and registry.
func (s *Service) Reset(ctx context.Context, call Call) ([]Event, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != domain.PhaseFinished {
		return nil, ErrNotFinished
	}
	if err := s.store.Reset(ctx, domain.Forming(call.Unit)); err != nil {
		return nil, fmt.Errorf("reset game: %w", err)
	}
	return []Event{{Kind: EventGameReset, Payload: GameResetPayload{EarliestStart: call.Unit}}}, nil
}

// Destroy permanently removes a finished game. Only the winner may destroy it.
func (s *Service) Destroy(ctx context.Context, call Call) ([]Event, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Phase != domain.PhaseFinished {
		return nil, ErrNotFinished
	}
	if call.Caller != state.Winner {
		return nil, ErrNotWinner
	}
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	idx, found := participants.Find(state.Winner)
	if !found {
		return nil, ErrWinnerNotRegistered
	}
	winner := participants[idx]

	if err := s.store.Drop(ctx); err != nil {
		return nil, fmt.Errorf("drop game: %w", err)
	}
	return []Event{{Kind: EventGameDestroyed, Payload: GameDestroyedPayload{Winner: winner}}}, nil
}
