package reconcile

import (
	"time"

	"asset-tracker/core/tracking"
)

const (
	// DefaultMaxAttempts bounds compare-and-commit retries per event.
	DefaultMaxAttempts = 3
	// DefaultStoreTimeout bounds every directory lookup and commit.
	DefaultStoreTimeout = 5 * time.Second
)

// Options configures an Engine.
type Options struct {
	// MaxAttempts is the compare-and-commit budget per event.
	// Values below 1 use DefaultMaxAttempts.
	MaxAttempts int

	// StoreTimeout bounds each lookup and each commit.
	// Zero uses DefaultStoreTimeout.
	StoreTimeout time.Duration

	// Rooms is the set of valid locations. Nil uses tracking.DefaultRooms.
	Rooms *tracking.Rooms

	// Directory resolves tags. Nil uses a StoreDirectory over the engine's store.
	Directory Directory

	// Clock returns the commit time. Nil uses time.Now in UTC.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.Rooms == nil {
		o.Rooms = tracking.DefaultRooms()
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// ActionType represents the type of membership repair.
type ActionType string

const (
	// ActionRemoveMember unlists an item from a room that does not hold it.
	ActionRemoveMember ActionType = "remove_member"
	// ActionAddMember lists an item in the room it is located in.
	ActionAddMember ActionType = "add_member"
)

// Action represents a planned membership repair.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// ItemID is the affected item.
	ItemID string `json:"item_id"`

	// Room is the membership set the action touches.
	Room tracking.RoomID `json:"room"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// ItemCheck is the membership verdict for a single item.
type ItemCheck struct {
	ItemID   string            `json:"item_id"`
	Name     string            `json:"name"`
	Location tracking.RoomID   `json:"location"`
	ListedIn []tracking.RoomID `json:"listed_in"`
	// Consistent is true when the item is listed in exactly its location.
	Consistent bool `json:"consistent"`
}

// RepairPlan contains the membership verdicts and the planned repairs.
type RepairPlan struct {
	// Checks contains per-item verdicts, sorted by item id.
	Checks []ItemCheck `json:"checks"`

	// Actions contains planned repair operations; removals come first.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a repair plan.
type PlanSummary struct {
	// TotalItems is the number of registered items.
	TotalItems int `json:"total_items"`

	// Consistent counts items listed in exactly their current location.
	Consistent int `json:"consistent"`

	// Unlisted counts items missing from their location's membership set.
	Unlisted int `json:"unlisted"`

	// Stray counts items listed in at least one room they are not in.
	Stray int `json:"stray"`

	// Orphans counts membership entries for ids that are not registered.
	Orphans int `json:"orphans"`

	// RemoveActions counts planned removals.
	RemoveActions int `json:"remove_actions"`

	// AddActions counts planned additions.
	AddActions int `json:"add_actions"`
}

// RepairOptions controls whether ApplyRepair mutates anything.
type RepairOptions struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// Confirmed indicates the operator confirmed the repair.
	// If false, nothing is executed regardless of DryRun.
	Confirmed bool
}
