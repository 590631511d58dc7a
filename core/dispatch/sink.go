package dispatch

import (
	"context"

	"asset-tracker/core/tracking"

	"go.uber.org/zap"
)

// Sink receives every reconciliation result. Notify must not block for long;
// it runs on the lane of the event's tag.
type Sink interface {
	Notify(ctx context.Context, res tracking.Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, res tracking.Result)

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, res tracking.Result) { f(ctx, res) }

// MultiSink fans a result out to every sink in order.
type MultiSink []Sink

// Notify implements Sink.
func (m MultiSink) Notify(ctx context.Context, res tracking.Result) {
	for _, s := range m {
		s.Notify(ctx, res)
	}
}

// LogSink writes one structured line per result.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify implements Sink. Infra outcomes are logged at error level, the
// rest at debug level since the engine already logs domain outcomes.
func (s *LogSink) Notify(_ context.Context, res tracking.Result) {
	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("tag", res.Tag),
		zap.Int("attempts", res.Attempts),
	}
	if res.ItemID != "" {
		fields = append(fields, zap.String("item_id", res.ItemID))
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}

	if res.Infra() {
		s.logger.Error("Detection not reconciled", fields...)
		return
	}
	s.logger.Debug("Detection reconciled", fields...)
}
