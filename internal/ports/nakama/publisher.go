package nakama

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/app"
)

// dispatchPublisher broadcasts app events to the presences of a match.
type dispatchPublisher struct {
	dispatcher runtime.MatchDispatcher
	presences  map[string]runtime.Presence
	logger     runtime.Logger
}

func newDispatchPublisher(dispatcher runtime.MatchDispatcher, presences map[string]runtime.Presence, logger runtime.Logger) *dispatchPublisher {
	return &dispatchPublisher{dispatcher: dispatcher, presences: presences, logger: logger}
}

func (p *dispatchPublisher) Publish(ctx context.Context, events ...app.Event) {
	for _, ev := range events {
		opCode, data, err := encodeEvent(ev)
		if err != nil {
			p.logger.Error("Publish: %v", err)
			continue
		}

		// Determine recipients (default to broadcast)
		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if presence, ok := p.presences[uid]; ok {
					recipients = append(recipients, presence)
				}
			}
			// Targeted events for agents without a presence (bots) go nowhere.
			if len(recipients) == 0 {
				continue
			}
		}

		if err := p.dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
			p.logger.Warn("Publish: broadcast %s failed: %v", ev.Kind, err)
		}
	}
}

var _ app.Publisher = (*dispatchPublisher)(nil)
