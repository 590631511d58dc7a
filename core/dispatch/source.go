package dispatch

import (
	"context"
	"errors"
	"fmt"

	"asset-tracker/core/tracking"
)

// ErrSourceExhausted marks a source failure that a reconnect cannot resume,
// such as a finite log that would be replayed from its first line.
var ErrSourceExhausted = errors.New("source cannot be resumed")

// Permanent wraps err so that Run stops the source instead of reconnecting.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSourceExhausted, err)
}

// Source produces detection events.
//
// Stream calls emit for each event until ctx is done, the source is
// exhausted (nil) or it fails (non-nil error, after which the dispatcher
// reconnects by calling Stream again unless the error wraps
// ErrSourceExhausted). emit never blocks on reconciliation.
type Source interface {
	Name() string
	Stream(ctx context.Context, emit func(tracking.DetectionEvent)) error
}
