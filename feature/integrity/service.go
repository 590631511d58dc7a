package integrity

import (
	"context"
	"errors"

	"asset-tracker/core/reconcile"
	"asset-tracker/core/storage"
	"asset-tracker/core/tracking"
	"asset-tracker/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoDatabase is returned by the schema check when no SQL database is used.
var ErrNoDatabase = errors.New("no SQL database configured")

// Service handles integrity checks.
type Service struct {
	store  tracking.Store
	client storage.Client
	bucket string
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new integrity service. client and db may be nil.
func NewService(store tracking.Store, client storage.Client, bucket string, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		bucket: bucket,
		db:     db,
		logger: logger,
	}
}

// CheckMembership plans the membership repairs.
func (s *Service) CheckMembership(ctx context.Context) (*reconcile.RepairPlan, error) {
	return checks.CheckMembership(ctx, s.store)
}

// FixMembership applies a membership repair plan.
func (s *Service) FixMembership(ctx context.Context, plan *reconcile.RepairPlan, dryRun bool) (int, error) {
	return checks.FixMembership(ctx, s.store, plan, dryRun)
}

// CheckLedger replays the movement ledger.
func (s *Service) CheckLedger(ctx context.Context) (*checks.LedgerReport, error) {
	return checks.CheckLedger(ctx, s.store)
}

// CheckSchema inspects the database schema.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	return checks.CheckSchema(s.db)
}

// CheckStructure returns a list of missing folders.
func (s *Service) CheckStructure(ctx context.Context) ([]string, error) {
	return checks.CheckStructure(ctx, s.client, s.bucket)
}

// FixStructure creates the missing folders.
func (s *Service) FixStructure(ctx context.Context, missing []string) error {
	return checks.FixStructure(ctx, s.client, s.bucket, s.logger, missing)
}
