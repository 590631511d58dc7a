package reconcile

import (
	"context"
	"testing"

	"asset-tracker/core/store/memstore"
	"asset-tracker/core/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan(t *testing.T) {
	items := []tracking.Item{
		{ID: "item_3", Name: "Unlisted", CurrentLocation: roomB},
		{ID: "item_1", Name: "Consistent", CurrentLocation: roomA},
		{ID: "item_2", Name: "Stray", CurrentLocation: roomA},
		{ID: "item_4", Name: "Wrong room", CurrentLocation: roomA},
	}
	membership := map[string][]tracking.RoomID{
		"item_1":   {roomA},
		"item_2":   {roomA, roomB},
		"item_4":   {roomB},
		"ghost_99": {roomB},
	}

	plan := buildPlan(items, membership)

	require.Len(t, plan.Checks, 4)
	assert.Equal(t, "item_1", plan.Checks[0].ItemID)
	assert.True(t, plan.Checks[0].Consistent)
	assert.False(t, plan.Checks[1].Consistent)
	assert.False(t, plan.Checks[2].Consistent)
	assert.Empty(t, plan.Checks[2].ListedIn)

	assert.Equal(t, PlanSummary{
		TotalItems:    4,
		Consistent:    1,
		Unlisted:      2,
		Stray:         2,
		Orphans:       1,
		RemoveActions: 3,
		AddActions:    2,
	}, plan.Summary)

	assert.Equal(t, []Action{
		{Type: ActionRemoveMember, ItemID: "ghost_99", Room: roomB, Reason: "item is not registered"},
		{Type: ActionRemoveMember, ItemID: "item_2", Room: roomB, Reason: `item is located in "Room A"`},
		{Type: ActionRemoveMember, ItemID: "item_4", Room: roomB, Reason: `item is located in "Room A"`},
		{Type: ActionAddMember, ItemID: "item_3", Room: roomB, Reason: "item missing from its location's membership"},
		{Type: ActionAddMember, ItemID: "item_4", Room: roomA, Reason: "item missing from its location's membership"},
	}, plan.Actions)
}

func TestBuildPlan_Empty(t *testing.T) {
	plan := buildPlan(nil, nil)
	assert.NotNil(t, plan.Checks)
	assert.NotNil(t, plan.Actions)
	assert.Empty(t, plan.Actions)
	assert.Equal(t, PlanSummary{}, plan.Summary)
}

func driftedStore(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	register(t, s, "item_1", "T1", roomA)
	register(t, s, "item_2", "T2", roomA)
	require.NoError(t, s.AddMember(ctx, roomB, "item_2"))
	require.NoError(t, s.CreateItem(ctx, tracking.Item{ID: "item_3", Name: "Item item_3", Tag: "T3", CurrentLocation: roomB}))
	require.NoError(t, s.AddMember(ctx, roomA, "ghost_99"))
	return s
}

func TestRepairAndApply(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfirmed does nothing", func(t *testing.T) {
		s := driftedStore(t)
		plan, executed, err := RepairAndApply(ctx, s, RepairOptions{})
		require.NoError(t, err)
		assert.Zero(t, executed)
		assert.Len(t, plan.Actions, 3)

		again, err := PlanRepair(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, plan.Summary, again.Summary)
	})

	t.Run("dry run does nothing", func(t *testing.T) {
		s := driftedStore(t)
		_, executed, err := RepairAndApply(ctx, s, RepairOptions{DryRun: true, Confirmed: true})
		require.NoError(t, err)
		assert.Zero(t, executed)
	})

	t.Run("confirmed repair converges", func(t *testing.T) {
		s := driftedStore(t)
		plan, executed, err := RepairAndApply(ctx, s, RepairOptions{Confirmed: true})
		require.NoError(t, err)
		assert.Equal(t, len(plan.Actions), executed)

		after, err := PlanRepair(ctx, s)
		require.NoError(t, err)
		assert.Empty(t, after.Actions)
		assert.Equal(t, 3, after.Summary.Consistent)
		assert.Zero(t, after.Summary.Orphans)

		membersA, err := s.Members(ctx, roomA)
		require.NoError(t, err)
		assert.Equal(t, []string{"item_1", "item_2"}, membersA)
		membersB, err := s.Members(ctx, roomB)
		require.NoError(t, err)
		assert.Equal(t, []string{"item_3"}, membersB)
	})

	t.Run("store failure is reported", func(t *testing.T) {
		s := driftedStore(t)
		require.NoError(t, s.Close())
		_, _, err := RepairAndApply(ctx, s, RepairOptions{Confirmed: true})
		assert.ErrorIs(t, err, tracking.ErrStoreUnavailable)
	})
}

func TestApplyRepair_RevalidatesAgainstCurrentLocation(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.CreateItem(ctx, tracking.Item{ID: "item_1", Name: "Item", Tag: "T1", CurrentLocation: roomA}))

	plan, err := PlanRepair(ctx, s)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)

	// The item moves after planning; the planned add is stale.
	e := newEngine(s)
	res := e.Reconcile(ctx, detect("T1", roomB))
	require.Equal(t, tracking.OutcomeMoved, res.Outcome)

	executed, err := ApplyRepair(ctx, s, plan, RepairOptions{Confirmed: true})
	require.NoError(t, err)
	assert.Zero(t, executed)

	rooms, err := s.RoomsOf(ctx, "item_1")
	require.NoError(t, err)
	assert.Equal(t, []tracking.RoomID{roomB}, rooms)
}
