package nakama

const (
	// RpcFindGame is the Nakama RPC id clients call to find or create a forming game.
	RpcFindGame = "gridclaim_find"
	// RpcGameState returns the read-only view of a running match.
	RpcGameState = "gridclaim_state"
	// RpcAgentToken issues a websocket token for a remote agent.
	RpcAgentToken = "gridclaim_agent_token"

	// MatchNameGridclaim is the authoritative match handler name registered with Nakama.
	MatchNameGridclaim = "gridclaim_match"

	// StorageCollection holds every system-owned object of a game.
	StorageCollection = "gridclaim"

	// signalState asks a match for its read-only view.
	signalState = "state"

	// systemCaller is the caller recorded for operations the match loop issues itself.
	systemCaller = "gridclaim_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpRegister int64 = 1
	OpStart    int64 = 2
	OpEnd      int64 = 3
	OpReset    int64 = 4
	OpDestroy  int64 = 5
	OpAddBots  int64 = 6

	// Server -> Client events
	OpPlayerRegistered int64 = 101
	OpGameStarted      int64 = 102
	OpTurnTaken        int64 = 103
	OpRoundIncremented int64 = 104
	OpGameEnded        int64 = 105
	OpGameReset        int64 = 106
	OpGameDestroyed    int64 = 107
	OpError            int64 = 199
)

// Match label keys.
const (
	labelKeyGame  = "game"
	labelKeyPhase = "phase"
	labelKeyOpen  = "open"
	labelGame     = "gridclaim"
)

// gRPC status codes used for runtime errors.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeInternal           = 13
)
