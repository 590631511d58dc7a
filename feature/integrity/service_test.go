package integrity

import (
	"context"
	"testing"

	"asset-tracker/core/database"
	"asset-tracker/core/storage/mocks"
	"asset-tracker/core/store/memstore"
	"asset-tracker/core/store/sqlstore"
	"asset-tracker/core/tracking"
	"asset-tracker/feature/integrity/checks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	roomA tracking.RoomID = "Room A"
	roomB tracking.RoomID = "Room B"
)

// driftedStore returns a store where item_1 is listed in both rooms.
func driftedStore(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.CreateItem(ctx, tracking.Item{ID: "item_1", Name: "Glass Box #1", Tag: "RFID001", CurrentLocation: roomA}))
	require.NoError(t, s.AddMember(ctx, roomA, "item_1"))
	require.NoError(t, s.AddMember(ctx, roomB, "item_1"))
	return s
}

func TestService_Structure(t *testing.T) {
	mockClient := new(mocks.Client)
	logger := zap.NewNop()
	svc := NewService(memstore.New(), mockClient, "test-bucket", nil, logger)

	t.Run("CheckStructure", func(t *testing.T) {
		mockClient.ExpectBucket("test-bucket")

		missing, err := svc.CheckStructure(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, checks.RequiredFolders, missing)
	})

	t.Run("FixStructure", func(t *testing.T) {
		mockClient.On("PutObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)
		err := svc.FixStructure(context.Background(), []string{"ledger"})
		assert.NoError(t, err)
	})

	t.Run("Storage Disabled", func(t *testing.T) {
		svc := NewService(memstore.New(), nil, "", nil, logger)
		_, err := svc.CheckStructure(context.Background())
		assert.ErrorIs(t, err, checks.ErrStorageDisabled)
	})
}

func TestService_Schema(t *testing.T) {
	logger := zap.NewNop()

	t.Run("No Database", func(t *testing.T) {
		svc := NewService(memstore.New(), nil, "", nil, logger)
		_, err := svc.CheckSchema()
		assert.ErrorIs(t, err, ErrNoDatabase)
	})

	t.Run("Migrated", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		store, err := sqlstore.Open(context.Background(), db)
		require.NoError(t, err)

		svc := NewService(store, nil, "", db, logger)
		report, err := svc.CheckSchema()
		require.NoError(t, err)
		assert.True(t, report.Matched)
	})
}

func TestService_Membership(t *testing.T) {
	ctx := context.Background()
	s := driftedStore(t)
	svc := NewService(s, nil, "", nil, zap.NewNop())

	plan, err := svc.CheckMembership(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Stray)

	executed, err := svc.FixMembership(ctx, plan, false)
	require.NoError(t, err)
	assert.Equal(t, 1, executed)

	after, err := svc.CheckMembership(ctx)
	require.NoError(t, err)
	assert.Empty(t, after.Actions)
}

func TestService_Ledger(t *testing.T) {
	svc := NewService(driftedStore(t), nil, "", nil, zap.NewNop())
	report, err := svc.CheckLedger(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, 1, report.Items)
	assert.Zero(t, report.Records)
}
