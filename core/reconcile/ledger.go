package reconcile

import (
	"context"
	"fmt"

	"asset-tracker/core/tracking"
)

// ledgerWriter appends movement records. It is only reachable from the
// engine's commit path: a record without the matching location change would
// break the audit trail.
type ledgerWriter struct{}

func (ledgerWriter) append(ctx context.Context, st tracking.Store, rec tracking.MovementRecord) (tracking.RecordID, error) {
	if rec.FromLocation == rec.ToLocation {
		return 0, fmt.Errorf("refusing ledger record for item %s with from == to (%q)", rec.ItemID, rec.ToLocation)
	}
	return st.AppendMovement(ctx, rec)
}
