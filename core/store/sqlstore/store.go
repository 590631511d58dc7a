// Package sqlstore implements tracking.Store on top of GORM.
//
// Items, the movement ledger and room membership live in three tables
// (items, movements, room_members). The compare-and-set primitive is a
// conditional UPDATE keyed on the expected location, and the store implements
// tracking.Transactor so a movement's four effects commit in one database
// transaction.
//
// Every driver failure is wrapped with tracking.ErrStoreUnavailable.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-tracker/core/tracking"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a GORM-backed tracking.Store.
type Store struct {
	db *gorm.DB
}

var (
	_ tracking.Store      = (*Store)(nil)
	_ tracking.Transactor = (*Store)(nil)
)

// New wraps an open connection without touching the schema.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open migrates the schema and returns the store.
func Open(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return New(db), nil
}

// Migrate creates or updates the tracking tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&itemRow{}, &movementRow{}, &memberRow{}); err != nil {
		return fmt.Errorf("failed to migrate tracking schema: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, tracking.ErrStoreUnavailable, err)
}

// FindByTag implements tracking.Store.
func (s *Store) FindByTag(ctx context.Context, tag string) (tracking.Item, error) {
	var rows []itemRow
	if err := s.db.WithContext(ctx).Where("tag = ?", tag).Limit(2).Find(&rows).Error; err != nil {
		return tracking.Item{}, unavailable("find item by tag", err)
	}
	switch len(rows) {
	case 0:
		return tracking.Item{}, tracking.ErrItemNotFound
	case 1:
		return rows[0].toItem(), nil
	default:
		return tracking.Item{}, fmt.Errorf("%w: %s claimed by %s and %s", tracking.ErrDuplicateTag, tag, rows[0].ID, rows[1].ID)
	}
}

// GetItem implements tracking.Store.
func (s *Store) GetItem(ctx context.Context, id string) (tracking.Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tracking.Item{}, tracking.ErrItemNotFound
	}
	if err != nil {
		return tracking.Item{}, unavailable("get item", err)
	}
	return row.toItem(), nil
}

// ListItems implements tracking.Store.
func (s *Store) ListItems(ctx context.Context) ([]tracking.Item, error) {
	var rows []itemRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, unavailable("list items", err)
	}
	items := make([]tracking.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toItem())
	}
	return items, nil
}

// CreateItem implements tracking.Store.
func (s *Store) CreateItem(ctx context.Context, item tracking.Item) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&itemRow{}).
		Where("id = ? OR tag = ?", item.ID, item.Tag).
		Count(&count).Error
	if err != nil {
		return unavailable("check item", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: id %s or tag %s", tracking.ErrItemExists, item.ID, item.Tag)
	}

	row := itemRow{
		ID:              item.ID,
		Name:            item.Name,
		Tag:             item.Tag,
		CurrentLocation: string(item.CurrentLocation),
		LastUpdated:     item.LastUpdated,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		// A concurrent registration can pass the check above; the unique
		// index on tag still rejects the second insert.
		if s.duplicateKey(err) {
			return fmt.Errorf("%w: id %s or tag %s", tracking.ErrItemExists, item.ID, item.Tag)
		}
		return unavailable("create item", err)
	}
	return nil
}

// duplicateKey reports whether err is a unique constraint violation, whether
// or not the connection was opened with TranslateError.
func (s *Store) duplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if t, ok := s.db.Dialector.(gorm.ErrorTranslator); ok {
		return errors.Is(t.Translate(err), gorm.ErrDuplicatedKey)
	}
	return false
}

// CompareAndSetLocation implements tracking.Store.
func (s *Store) CompareAndSetLocation(ctx context.Context, itemID string, expected, next tracking.RoomID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&itemRow{}).
		Where("id = ? AND current_location = ?", itemID, string(expected)).
		Updates(map[string]any{
			"current_location": string(next),
			"last_updated":     at,
		})
	if res.Error != nil {
		return unavailable("update item location", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: item %s is at %q, expected %q", tracking.ErrPreconditionFailed, itemID, current.CurrentLocation, expected)
}

// AppendMovement implements tracking.Store.
func (s *Store) AppendMovement(ctx context.Context, rec tracking.MovementRecord) (tracking.RecordID, error) {
	row := movementRow{
		ItemID:       rec.ItemID,
		ItemName:     rec.ItemName,
		Tag:          rec.Tag,
		FromLocation: string(rec.FromLocation),
		ToLocation:   string(rec.ToLocation),
		ReaderID:     rec.ReaderID,
		DetectedAt:   rec.DetectedAt,
		Timestamp:    rec.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, unavailable("append movement", err)
	}
	return tracking.RecordID(row.ID), nil
}

// ListMovements implements tracking.Store.
func (s *Store) ListMovements(ctx context.Context, filter tracking.MovementFilter) ([]tracking.MovementRecord, error) {
	q := s.db.WithContext(ctx).Model(&movementRow{})
	if filter.ItemID != "" {
		q = q.Where("item_id = ?", filter.ItemID)
	}
	if filter.Newest {
		q = q.Order("id DESC")
	} else {
		q = q.Order("id ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []movementRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, unavailable("list movements", err)
	}
	records := make([]tracking.MovementRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// AddMember implements tracking.Store.
func (s *Store) AddMember(ctx context.Context, room tracking.RoomID, itemID string) error {
	row := memberRow{Room: string(room), ItemID: itemID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return unavailable("add room member", err)
	}
	return nil
}

// RemoveMember implements tracking.Store.
func (s *Store) RemoveMember(ctx context.Context, room tracking.RoomID, itemID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("room = ? AND item_id = ?", string(room), itemID).
		Delete(&memberRow{})
	if res.Error != nil {
		return false, unavailable("remove room member", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RoomsOf implements tracking.Store.
func (s *Store) RoomsOf(ctx context.Context, itemID string) ([]tracking.RoomID, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&memberRow{}).
		Where("item_id = ?", itemID).
		Order("room").
		Pluck("room", &names).Error
	if err != nil {
		return nil, unavailable("load item rooms", err)
	}
	rooms := make([]tracking.RoomID, 0, len(names))
	for _, name := range names {
		rooms = append(rooms, tracking.RoomID(name))
	}
	return rooms, nil
}

// Members implements tracking.Store.
func (s *Store) Members(ctx context.Context, room tracking.RoomID) ([]string, error) {
	ids := []string{}
	err := s.db.WithContext(ctx).Model(&memberRow{}).
		Where("room = ?", string(room)).
		Order("item_id").
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, unavailable("load room members", err)
	}
	return ids, nil
}

// Membership implements tracking.Store.
func (s *Store) Membership(ctx context.Context) (map[string][]tracking.RoomID, error) {
	var rows []memberRow
	if err := s.db.WithContext(ctx).Order("item_id, room").Find(&rows).Error; err != nil {
		return nil, unavailable("load membership", err)
	}
	out := make(map[string][]tracking.RoomID)
	for _, row := range rows {
		out[row.ItemID] = append(out[row.ItemID], tracking.RoomID(row.Room))
	}
	return out, nil
}

// WithinTx implements tracking.Transactor. Errors returned by fn are passed
// through unchanged so callers can still match ErrPreconditionFailed.
func (s *Store) WithinTx(ctx context.Context, fn func(tx tracking.Store) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Store{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return unavailable("commit transaction", err)
	}
	return err
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
