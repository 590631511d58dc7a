package source

import (
	"context"
	"errors"

	"asset-tracker/core/events"
	"asset-tracker/core/tracking"
)

// errSubscriptionClosed makes the dispatcher resubscribe after the bus drops
// a subscription.
var errSubscriptionClosed = errors.New("bus subscription closed")

// Bus streams detections from the event bus.
type Bus struct {
	bus *events.Bus
}

// NewBus returns a source reading the bus detections topic.
func NewBus(bus *events.Bus) *Bus {
	return &Bus{bus: bus}
}

// Name implements dispatch.Source.
func (b *Bus) Name() string {
	return "bus:" + b.bus.Config().DetectionsTopic
}

// Stream implements dispatch.Source.
func (b *Bus) Stream(ctx context.Context, emit func(tracking.DetectionEvent)) error {
	ch, err := b.bus.SubscribeDetections(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errSubscriptionClosed
			}
			emit(ev)
		}
	}
}
