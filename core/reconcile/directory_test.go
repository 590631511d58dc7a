package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"asset-tracker/core/store/memstore"
	"asset-tracker/core/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDirectory_Lookup(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	register(t, s, "item_1", "T1", roomA)
	dir := NewStoreDirectory(s, time.Second)

	snap, err := dir.Lookup(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, tracking.ItemSnapshot{ID: "item_1", Name: "Item item_1", Tag: "T1", Location: roomA}, snap)

	_, err = dir.Lookup(ctx, "missing")
	assert.True(t, errors.Is(err, tracking.ErrItemNotFound))
	assert.False(t, errors.Is(err, tracking.ErrDirectoryUnavailable))

	require.NoError(t, s.Close())
	_, err = dir.Lookup(ctx, "T1")
	assert.ErrorIs(t, err, tracking.ErrDirectoryUnavailable)
	assert.ErrorIs(t, err, tracking.ErrStoreUnavailable)
}

func TestStoreDirectory_LookupTimesOut(t *testing.T) {
	inner := memstore.New()
	register(t, inner, "item_1", "T1", roomA)
	s := newFaulty(inner)
	s.stallFind = true
	dir := NewStoreDirectory(s, 20*time.Millisecond)

	start := time.Now()
	_, err := dir.Lookup(context.Background(), "T1")
	assert.ErrorIs(t, err, tracking.ErrDirectoryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStoreDirectory_DefaultTimeout(t *testing.T) {
	dir := NewStoreDirectory(memstore.New(), 0)
	assert.Equal(t, DefaultStoreTimeout, dir.timeout)
}
