package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"asset-tracker/core/database"
	"asset-tracker/core/store/memstore"
	"asset-tracker/core/store/sqlstore"
	"asset-tracker/core/tracking"

	"github.com/stretchr/testify/require"
)

const (
	roomA tracking.RoomID = "Room A"
	roomB tracking.RoomID = "Room B"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// register provisions an item the way the seed command does: item row plus
// membership in its initial room.
func register(t *testing.T, s tracking.Store, id, tag string, room tracking.RoomID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateItem(ctx, tracking.Item{ID: id, Name: "Item " + id, Tag: tag, CurrentLocation: room, LastUpdated: fixedNow}))
	require.NoError(t, s.AddMember(ctx, room, id))
}

func newSQLStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	s, err := sqlstore.Open(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// stores returns one store of each commit flavor.
func stores(t *testing.T) map[string]tracking.Store {
	return map[string]tracking.Store{
		"memstore": memstore.New(),
		"sqlstore": newSQLStore(t),
	}
}

// faultyStore wraps a store and fails selected primitives.
type faultyStore struct {
	tracking.Store

	mu            sync.Mutex
	failFind      error
	failAppend    error
	failAdd       error
	failRemove    error
	failCASAfter  int // fail compare-and-set calls after this many successes; <0 disables
	casCalls      int
	failCAS       error
	beforeCommit  func()
	committedOnce bool

	// stallFind and stallCAS hold the call until its context is done, as a
	// hung database would.
	stallFind bool
	stallCAS  bool
}

func newFaulty(inner tracking.Store) *faultyStore {
	return &faultyStore{Store: inner, failCASAfter: -1}
}

func (f *faultyStore) FindByTag(ctx context.Context, tag string) (tracking.Item, error) {
	if f.failFind != nil {
		return tracking.Item{}, f.failFind
	}
	if f.stallFind {
		<-ctx.Done()
	}
	return f.Store.FindByTag(ctx, tag)
}

func (f *faultyStore) CompareAndSetLocation(ctx context.Context, itemID string, expected, next tracking.RoomID, at time.Time) error {
	f.mu.Lock()
	hook := f.beforeCommit
	if hook != nil && !f.committedOnce {
		f.committedOnce = true
	} else {
		hook = nil
	}
	f.casCalls++
	fail := f.failCASAfter >= 0 && f.casCalls > f.failCASAfter
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if fail {
		return f.failCAS
	}
	if f.stallCAS {
		<-ctx.Done()
	}
	return f.Store.CompareAndSetLocation(ctx, itemID, expected, next, at)
}

func (f *faultyStore) AppendMovement(ctx context.Context, rec tracking.MovementRecord) (tracking.RecordID, error) {
	if f.failAppend != nil {
		return 0, f.failAppend
	}
	return f.Store.AppendMovement(ctx, rec)
}

func (f *faultyStore) AddMember(ctx context.Context, room tracking.RoomID, itemID string) error {
	if f.failAdd != nil {
		return f.failAdd
	}
	return f.Store.AddMember(ctx, room, itemID)
}

func (f *faultyStore) RemoveMember(ctx context.Context, room tracking.RoomID, itemID string) (bool, error) {
	if f.failRemove != nil {
		return false, f.failRemove
	}
	return f.Store.RemoveMember(ctx, room, itemID)
}
