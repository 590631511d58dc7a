package reconcile

import (
	"context"
	"fmt"

	"asset-tracker/core/tracking"

	"go.uber.org/zap"
)

// membershipIndex maintains room membership as a view derived from item
// locations.
type membershipIndex struct {
	logger *zap.Logger
}

// move unlists itemID from `from` and lists it in `to`. Removing an item that
// is not listed is treated as already consistent.
func (m membershipIndex) move(ctx context.Context, st tracking.Store, itemID string, from, to tracking.RoomID) error {
	removed, err := st.RemoveMember(ctx, from, itemID)
	if err != nil {
		return fmt.Errorf("remove %s from %q: %w", itemID, from, err)
	}
	if !removed {
		m.logger.Warn("Item was not listed in its previous room",
			zap.String("item_id", itemID),
			zap.String("room", string(from)),
		)
	}
	if err := st.AddMember(ctx, to, itemID); err != nil {
		return fmt.Errorf("add %s to %q: %w", itemID, to, err)
	}
	return nil
}

// repair makes the item listed in exactly its current location, read fresh
// from st rather than trusting an earlier snapshot. It returns the number of
// changes made.
func (m membershipIndex) repair(ctx context.Context, st tracking.Store, itemID string) (int, error) {
	item, err := st.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	rooms, err := st.RoomsOf(ctx, itemID)
	if err != nil {
		return 0, err
	}

	changes := 0
	listed := false
	for _, room := range rooms {
		if room == item.CurrentLocation {
			listed = true
			continue
		}
		if _, err := st.RemoveMember(ctx, room, itemID); err != nil {
			return changes, fmt.Errorf("remove stray %s from %q: %w", itemID, room, err)
		}
		changes++
	}
	if !listed {
		if err := st.AddMember(ctx, item.CurrentLocation, itemID); err != nil {
			return changes, fmt.Errorf("add %s to %q: %w", itemID, item.CurrentLocation, err)
		}
		changes++
	}

	if changes > 0 {
		m.logger.Warn("Repaired room membership drift",
			zap.String("item_id", itemID),
			zap.String("location", string(item.CurrentLocation)),
			zap.Any("listed_in", rooms),
			zap.Int("changes", changes),
		)
	}
	return changes, nil
}
