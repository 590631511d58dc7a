package reconcile

import (
	"context"
	"fmt"
	"strings"

	"asset-tracker/core/tracking"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Register provisions a new item in its initial room: the item row and its
// membership entry. An empty ID is replaced by a generated one.
//
// On a store without transactions a failed membership write leaves the item
// registered but unlisted; the error wraps tracking.ErrPartialCommit and the
// next detection of the tag repairs membership.
func (e *Engine) Register(ctx context.Context, item tracking.Item) (tracking.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Tag = strings.TrimSpace(item.Tag)
	if item.Tag == "" || item.CurrentLocation == "" {
		return tracking.Item{}, fmt.Errorf("register item: tag and location are required")
	}
	if err := e.opts.Rooms.Validate(item.CurrentLocation); err != nil {
		return tracking.Item{}, fmt.Errorf("register item: %w", err)
	}
	if item.ID == "" {
		item.ID = "item_" + uuid.NewString()
	}
	item.LastUpdated = e.opts.Clock()

	ctx, cancel := e.commitContext(ctx)
	defer cancel()

	if tx, ok := e.store.(tracking.Transactor); ok {
		err := tx.WithinTx(ctx, func(st tracking.Store) error {
			if err := st.CreateItem(ctx, item); err != nil {
				return err
			}
			return st.AddMember(ctx, item.CurrentLocation, item.ID)
		})
		if err != nil {
			return tracking.Item{}, err
		}
	} else {
		if err := e.store.CreateItem(ctx, item); err != nil {
			return tracking.Item{}, err
		}
		if err := e.store.AddMember(ctx, item.CurrentLocation, item.ID); err != nil {
			return item, fmt.Errorf("%w: item %s registered without membership: %w", tracking.ErrPartialCommit, item.ID, err)
		}
	}

	e.logger.Info("Item registered",
		zap.String("item_id", item.ID),
		zap.String("tag", item.Tag),
		zap.String("location", string(item.CurrentLocation)),
	)
	return item, nil
}
