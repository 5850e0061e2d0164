package ports

import (
	"context"

	"gridclaim/internal/domain"
)

// Reply is the result of asking an agent for a move. Err is the explicit
// failure variant: a crashed, overrunning or malformed call. Move is nil when
// the agent declined to move. Used is the compute actually consumed.
type Reply struct {
	Move *domain.Field
	Used uint64
	Err  error
}

// AgentCaller invokes the move-proposal capability of an agent under a hard
// compute limit. Implementations must return within the limit and must never
// let an agent failure escape as a panic.
type AgentCaller interface {
	Propose(ctx context.Context, id string, snapshot domain.RoundSnapshot, limit uint64) Reply
}
