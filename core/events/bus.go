// Package events provides an in-process pub/sub bus built on Watermill's
// Go channel transport.
//
// Two topics are used: detections published by reader endpoints and consumed
// by the dispatcher, and results published by the dispatcher for anyone
// interested in movements. Every subscriber of a topic receives every message.
package events

import (
	"context"
	"fmt"

	"asset-tracker/core/tracking"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Metadata keys set on published messages.
const (
	MetaTag      = "tag"
	MetaReaderID = "reader_id"
	MetaOutcome  = "outcome"
)

// Bus is the application's event bus.
type Bus struct {
	pubsub *gochannel.GoChannel
	cfg    Config
	logger *zap.Logger
}

// NewBus creates a bus. Messages published before anyone subscribes are
// dropped, so subscribe first.
func NewBus(cfg Config, logger *zap.Logger) *Bus {
	if cfg.DetectionsTopic == "" {
		cfg.DetectionsTopic = "detections"
	}
	if cfg.ResultsTopic == "" {
		cfg.ResultsTopic = "results"
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Buffer,
	}, &zapAdapter{log: logger})

	return &Bus{pubsub: pubsub, cfg: cfg, logger: logger}
}

// Config returns the bus configuration.
func (b *Bus) Config() Config {
	return b.cfg
}

// PublishDetection publishes ev to the detections topic.
func (b *Bus) PublishDetection(ctx context.Context, ev tracking.DetectionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal detection: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaTag, ev.Tag)
	msg.Metadata.Set(MetaReaderID, ev.ReaderID)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(b.cfg.DetectionsTopic, msg); err != nil {
		return fmt.Errorf("events: publish to %s: %w", b.cfg.DetectionsTopic, err)
	}
	return nil
}

// SubscribeDetections returns decoded detection events until ctx is done or
// the bus is closed. Malformed payloads are logged and skipped.
func (b *Bus) SubscribeDetections(ctx context.Context) (<-chan tracking.DetectionEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, b.cfg.DetectionsTopic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", b.cfg.DetectionsTopic, err)
	}

	out := make(chan tracking.DetectionEvent)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev tracking.DetectionEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Warn("Dropping malformed detection message",
					zap.String("message_uuid", msg.UUID),
					zap.Error(err),
				)
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// ResultMessage is the payload published on the results topic.
type ResultMessage struct {
	tracking.Result
	Reason string `json:"error,omitempty"`
}

// PublishResult publishes res to the results topic.
func (b *Bus) PublishResult(ctx context.Context, res tracking.Result) error {
	payload, err := json.Marshal(ResultMessage{Result: res, Reason: res.Error()})
	if err != nil {
		return fmt.Errorf("events: marshal result: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaTag, res.Tag)
	msg.Metadata.Set(MetaOutcome, string(res.Outcome))
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(b.cfg.ResultsTopic, msg); err != nil {
		return fmt.Errorf("events: publish to %s: %w", b.cfg.ResultsTopic, err)
	}
	return nil
}

// SubscribeResults returns the raw results stream. Callers must Ack each
// message.
func (b *Bus) SubscribeResults(ctx context.Context) (<-chan *message.Message, error) {
	msgs, err := b.pubsub.Subscribe(ctx, b.cfg.ResultsTopic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", b.cfg.ResultsTopic, err)
	}
	return msgs, nil
}

// Close stops all subscriptions.
func (b *Bus) Close() error {
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("events: close: %w", err)
	}
	return nil
}

// ResultPublisher forwards reconciliation results to the bus.
type ResultPublisher struct {
	bus *Bus
}

// NewResultPublisher returns a result sink publishing on bus.
func NewResultPublisher(bus *Bus) *ResultPublisher {
	return &ResultPublisher{bus: bus}
}

// Notify publishes res. Failures are logged, never returned to the engine.
func (p *ResultPublisher) Notify(ctx context.Context, res tracking.Result) {
	if err := p.bus.PublishResult(ctx, res); err != nil {
		p.bus.logger.Warn("Failed to publish result", zap.String("tag", res.Tag), zap.Error(err))
	}
}
