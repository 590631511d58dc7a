package checks

import (
	"context"
	"fmt"
	"sort"

	"asset-tracker/core/tracking"
)

// LedgerReport is the result of replaying the movement ledger against the
// item directory.
type LedgerReport struct {
	Records int  `json:"records"`
	Items   int  `json:"items"`
	Matched bool `json:"matched"`
	// Breaks are records whose origin is not the destination of the
	// previous record for the same item.
	Breaks []LedgerBreak `json:"breaks"`
	// Drift lists items whose location differs from their last recorded
	// destination.
	Drift []LocationDrift `json:"drift"`
	// UnknownItems are item ids that appear in the ledger only.
	UnknownItems []string `json:"unknown_items"`
}

// LedgerBreak is a discontinuity in an item's movement history.
type LedgerBreak struct {
	RecordID tracking.RecordID `json:"record_id"`
	ItemID   string            `json:"item_id"`
	Expected tracking.RoomID   `json:"expected_from"`
	Actual   tracking.RoomID   `json:"actual_from"`
}

// LocationDrift is an item whose stored location disagrees with the ledger.
type LocationDrift struct {
	ItemID   string          `json:"item_id"`
	Location tracking.RoomID `json:"location"`
	Ledger   tracking.RoomID `json:"ledger"`
}

// CheckLedger verifies that each item's movements form an unbroken chain
// ending at its current location.
func CheckLedger(ctx context.Context, store tracking.Store) (*LedgerReport, error) {
	records, err := store.ListMovements(ctx, tracking.MovementFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	items, err := store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	report := &LedgerReport{
		Records:      len(records),
		Items:        len(items),
		Breaks:       []LedgerBreak{},
		Drift:        []LocationDrift{},
		UnknownItems: []string{},
	}

	last := make(map[string]tracking.RoomID)
	for _, rec := range records {
		if prev, ok := last[rec.ItemID]; ok && prev != rec.FromLocation {
			report.Breaks = append(report.Breaks, LedgerBreak{
				RecordID: rec.ID,
				ItemID:   rec.ItemID,
				Expected: prev,
				Actual:   rec.FromLocation,
			})
		}
		last[rec.ItemID] = rec.ToLocation
	}

	for _, item := range items {
		to, ok := last[item.ID]
		delete(last, item.ID)
		if ok && to != item.CurrentLocation {
			report.Drift = append(report.Drift, LocationDrift{
				ItemID:   item.ID,
				Location: item.CurrentLocation,
				Ledger:   to,
			})
		}
	}
	for id := range last {
		report.UnknownItems = append(report.UnknownItems, id)
	}
	sort.Strings(report.UnknownItems)

	report.Matched = len(report.Breaks) == 0 && len(report.Drift) == 0 && len(report.UnknownItems) == 0
	return report, nil
}
