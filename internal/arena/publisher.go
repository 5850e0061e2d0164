package arena

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"

	"gridclaim/internal/app"
)

// LogPublisher writes game events to a logger.
type LogPublisher struct {
	Logger runtime.Logger
}

func (p LogPublisher) Publish(ctx context.Context, events ...app.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case app.EventTurnTaken:
			p.Logger.Debug("%s %+v", ev.Kind, ev.Payload)
		default:
			p.Logger.WithField("event", string(ev.Kind)).Info("%+v", ev.Payload)
		}
	}
}
