package reconcile

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"asset-tracker/core/store/memstore"
	"asset-tracker/core/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Register(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(s)

			item, err := e.Register(ctx, tracking.Item{Name: " Tool Kit ", Tag: "RFID006", CurrentLocation: roomB})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(item.ID, "item_"))
			assert.Equal(t, "Tool Kit", item.Name)
			assert.True(t, item.LastUpdated.Equal(fixedNow))

			got, err := s.FindByTag(ctx, "RFID006")
			require.NoError(t, err)
			assert.Equal(t, item.ID, got.ID)
			assert.Equal(t, []tracking.RoomID{roomB}, roomsOf(t, s, item.ID))

			_, err = e.Register(ctx, tracking.Item{Name: "Copy", Tag: "RFID006", CurrentLocation: roomA})
			assert.ErrorIs(t, err, tracking.ErrItemExists)
			members, err := s.Members(ctx, roomA)
			require.NoError(t, err)
			assert.Empty(t, members)

			_, err = e.Register(ctx, tracking.Item{Name: "No tag", CurrentLocation: roomA})
			assert.Error(t, err)
		})
	}
}

func TestEngine_RegisterUnknownRoom(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := newEngine(s).Register(ctx, tracking.Item{Name: "Lost", Tag: "RFID077", CurrentLocation: "Nowhere"})
			assert.ErrorIs(t, err, tracking.ErrUnknownRoom)

			_, err = s.FindByTag(ctx, "RFID077")
			assert.ErrorIs(t, err, tracking.ErrItemNotFound)
			membership, err := s.Membership(ctx)
			require.NoError(t, err)
			assert.Empty(t, membership)
		})
	}
}

func TestEngine_RegisterMembershipFailure(t *testing.T) {
	inner := memstore.New()
	s := newFaulty(inner)
	s.failAdd = fmt.Errorf("%w: timeout", tracking.ErrStoreUnavailable)
	e := newEngine(s)

	item, err := e.Register(context.Background(), tracking.Item{ID: "item_1", Name: "Documents Box", Tag: "RFID008", CurrentLocation: roomA})
	assert.ErrorIs(t, err, tracking.ErrPartialCommit)
	assert.Equal(t, "item_1", item.ID)
	assert.Empty(t, roomsOf(t, inner, "item_1"))

	s.failAdd = nil
	res := e.Reconcile(context.Background(), detect("RFID008", roomA))
	assert.Equal(t, tracking.OutcomeNoOp, res.Outcome)
	assert.Equal(t, []tracking.RoomID{roomA}, roomsOf(t, inner, "item_1"))
}
