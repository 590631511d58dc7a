package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-tracker/core/tracking"
)

// Directory resolves a tag to the item claiming it.
//
// Lookup returns tracking.ErrItemNotFound for unregistered tags. Any other
// failure wraps tracking.ErrDirectoryUnavailable; a tag claimed by several
// items additionally wraps tracking.ErrDuplicateTag. The read may race with a
// concurrent commit, so callers re-validate before writing.
type Directory interface {
	Lookup(ctx context.Context, tag string) (tracking.ItemSnapshot, error)
}

// StoreDirectory is a read-only Directory over a tracking.Store.
type StoreDirectory struct {
	store   tracking.Store
	timeout time.Duration
}

// NewStoreDirectory returns a directory whose lookups are bounded by timeout.
func NewStoreDirectory(store tracking.Store, timeout time.Duration) *StoreDirectory {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &StoreDirectory{store: store, timeout: timeout}
}

// Lookup implements Directory.
func (d *StoreDirectory) Lookup(ctx context.Context, tag string) (tracking.ItemSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	item, err := d.store.FindByTag(ctx, tag)
	switch {
	case err == nil:
		return item.Snapshot(), nil
	case errors.Is(err, tracking.ErrItemNotFound):
		return tracking.ItemSnapshot{}, tracking.ErrItemNotFound
	default:
		return tracking.ItemSnapshot{}, fmt.Errorf("lookup tag %s: %w: %w", tag, tracking.ErrDirectoryUnavailable, err)
	}
}
