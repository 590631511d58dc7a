package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"asset-tracker/core/tracking"

	"golang.org/x/sync/errgroup"
)

// PlanRepair compares every item's location with the membership index and
// returns the repairs needed to make membership match. It does NOT execute
// actions; use ApplyRepair for that.
func PlanRepair(ctx context.Context, store tracking.Store) (*RepairPlan, error) {
	var (
		items      []tracking.Item
		membership map[string][]tracking.RoomID
	)

	// Load both sides concurrently
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = store.ListItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		membership, err = store.Membership(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load repair inputs: %w", err)
	}

	return buildPlan(items, membership), nil
}

// buildPlan generates checks, actions and a summary from loaded state.
func buildPlan(items []tracking.Item, membership map[string][]tracking.RoomID) *RepairPlan {
	plan := &RepairPlan{Checks: make([]ItemCheck, 0, len(items))}
	var removes, adds []Action

	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
		listed := membership[item.ID]

		check := ItemCheck{
			ItemID:   item.ID,
			Name:     item.Name,
			Location: item.CurrentLocation,
			ListedIn: listed,
		}

		inLocation := false
		stray := false
		for _, room := range listed {
			if room == item.CurrentLocation {
				inLocation = true
				continue
			}
			stray = true
			removes = append(removes, Action{
				Type:   ActionRemoveMember,
				ItemID: item.ID,
				Room:   room,
				Reason: fmt.Sprintf("item is located in %q", item.CurrentLocation),
			})
		}
		if !inLocation {
			plan.Summary.Unlisted++
			adds = append(adds, Action{
				Type:   ActionAddMember,
				ItemID: item.ID,
				Room:   item.CurrentLocation,
				Reason: "item missing from its location's membership",
			})
		}
		if stray {
			plan.Summary.Stray++
		}
		check.Consistent = inLocation && !stray
		if check.Consistent {
			plan.Summary.Consistent++
		}
		plan.Checks = append(plan.Checks, check)
	}

	for itemID, rooms := range membership {
		if _, ok := known[itemID]; ok {
			continue
		}
		plan.Summary.Orphans++
		for _, room := range rooms {
			removes = append(removes, Action{
				Type:   ActionRemoveMember,
				ItemID: itemID,
				Room:   room,
				Reason: "item is not registered",
			})
		}
	}

	// Sort for deterministic output
	sort.Slice(plan.Checks, func(i, j int) bool { return plan.Checks[i].ItemID < plan.Checks[j].ItemID })
	sortActions(removes)
	sortActions(adds)

	plan.Summary.TotalItems = len(items)
	plan.Summary.RemoveActions = len(removes)
	plan.Summary.AddActions = len(adds)
	plan.Actions = make([]Action, 0, len(removes)+len(adds))
	plan.Actions = append(plan.Actions, removes...)
	plan.Actions = append(plan.Actions, adds...)
	return plan
}

func sortActions(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].ItemID != actions[j].ItemID {
			return actions[i].ItemID < actions[j].ItemID
		}
		return actions[i].Room < actions[j].Room
	})
}

// ApplyRepair executes the actions in a repair plan.
// Returns the number of actions executed and any error encountered.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
//
// Each action is re-validated against the item's current location right
// before it runs, so an item that moved after planning is not corrupted; any
// drift left behind is fixed by on-access repair.
func ApplyRepair(ctx context.Context, store tracking.Store, plan *RepairPlan, opts RepairOptions) (executed int, err error) {
	// Safety check: do not execute if not confirmed or dry-run
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	for _, action := range plan.Actions {
		item, err := store.GetItem(ctx, action.ItemID)
		registered := err == nil
		if err != nil && !errors.Is(err, tracking.ErrItemNotFound) {
			return executed, fmt.Errorf("failed to load item %s: %w", action.ItemID, err)
		}

		switch action.Type {
		case ActionRemoveMember:
			if registered && item.CurrentLocation == action.Room {
				continue
			}
			if _, err := store.RemoveMember(ctx, action.Room, action.ItemID); err != nil {
				return executed, fmt.Errorf("failed to remove %s from %q: %w", action.ItemID, action.Room, err)
			}
			executed++

		case ActionAddMember:
			if !registered || item.CurrentLocation != action.Room {
				continue
			}
			if err := store.AddMember(ctx, action.Room, action.ItemID); err != nil {
				return executed, fmt.Errorf("failed to add %s to %q: %w", action.ItemID, action.Room, err)
			}
			executed++
		}
	}

	return executed, nil
}

// RepairAndApply is a convenience wrapper that plans and optionally applies.
func RepairAndApply(ctx context.Context, store tracking.Store, opts RepairOptions) (*RepairPlan, int, error) {
	plan, err := PlanRepair(ctx, store)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyRepair(ctx, store, plan, opts)
	return plan, executed, err
}
