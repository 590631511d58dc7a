// Package reconcile is the event-reconciliation core of the asset tracker.
//
// The Engine takes a detection event (tag, room, reader) and decides whether
// it implies a movement:
//
//  1. Resolve the tag through the Directory. Unregistered tags produce an
//     UnknownTag result and no state change.
//  2. Re-derive the item's room membership from its location (recovery after
//     a partial commit).
//  3. If the item is already in the detected room the result is NoOp.
//  4. Otherwise compare-and-commit: move the item only if its location still
//     equals the value just read, append the movement record and move the
//     membership entry. A lost race reloads and re-evaluates, up to
//     Options.MaxAttempts, then reports Conflict.
//
// On a store implementing tracking.Transactor the four commit effects share
// one transaction. Without it the location compare-and-set is the
// linearization point, a failed ledger append is compensated, and membership
// is treated as a derived view that is repaired on access.
//
// # Repair Planning
//
// PlanRepair and ApplyRepair sweep the whole store, following a plan/apply
// flow: the plan lists per-item verdicts and the remove/add actions needed to
// make membership match item locations; ApplyRepair runs them only when
// confirmed and not in dry-run mode.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(store, logger, reconcile.Options{MaxAttempts: 3})
//	res := engine.Reconcile(ctx, tracking.DetectionEvent{Tag: "RFID001", Room: "Room B"})
//
//	plan, err := reconcile.PlanRepair(ctx, store)
//	executed, err := reconcile.ApplyRepair(ctx, store, plan, reconcile.RepairOptions{Confirmed: true})
package reconcile
