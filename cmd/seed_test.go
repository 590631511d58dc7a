package cmd

import (
	"context"
	"testing"

	"asset-tracker/core/reconcile"
	"asset-tracker/core/store/memstore"
	"asset-tracker/core/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	store := memstore.New()
	engine := reconcile.NewEngine(store, logger, reconcile.Options{})
	rooms := tracking.DefaultRooms()

	created, err := seedDemo(ctx, store, engine, rooms, logger)
	require.NoError(t, err)
	assert.Equal(t, len(demoItems), created)

	again, err := seedDemo(ctx, store, engine, rooms, logger)
	require.NoError(t, err)
	assert.Zero(t, again)

	membersA, err := store.Members(ctx, "Room A")
	require.NoError(t, err)
	membersB, err := store.Members(ctx, "Room B")
	require.NoError(t, err)
	assert.Len(t, membersA, 4)
	assert.Len(t, membersB, 4)

	item, err := store.FindByTag(ctx, "RFID006")
	require.NoError(t, err)
	assert.Equal(t, "Tool Kit", item.Name)
	assert.Equal(t, tracking.RoomID("Room B"), item.CurrentLocation)
}

func TestTally(t *testing.T) {
	tl := newTally()
	tl.Notify(context.Background(), tracking.Result{Outcome: tracking.OutcomeMoved})
	tl.Notify(context.Background(), tracking.Result{Outcome: tracking.OutcomeMoved})
	tl.Notify(context.Background(), tracking.Result{Outcome: tracking.OutcomeNoOp})

	assert.Equal(t, 3, tl.total)
	assert.Equal(t, 2, tl.counts[tracking.OutcomeMoved])
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"RFID001", "RFID002"}, splitList(" RFID001, ,RFID002 "))
	assert.Nil(t, splitList(""))
}
