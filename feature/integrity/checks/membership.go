package checks

import (
	"context"

	"asset-tracker/core/reconcile"
	"asset-tracker/core/tracking"
)

// CheckMembership compares every item's location with the room membership
// index and plans the repairs needed to make them agree.
func CheckMembership(ctx context.Context, store tracking.Store) (*reconcile.RepairPlan, error) {
	return reconcile.PlanRepair(ctx, store)
}

// FixMembership applies plan and returns the number of repairs executed.
// Each action is revalidated against the item's current location first.
func FixMembership(ctx context.Context, store tracking.Store, plan *reconcile.RepairPlan, dryRun bool) (int, error) {
	return reconcile.ApplyRepair(ctx, store, plan, reconcile.RepairOptions{DryRun: dryRun, Confirmed: true})
}
