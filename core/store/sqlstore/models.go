package sqlstore

import (
	"time"

	"asset-tracker/core/tracking"
)

// itemRow represents the 'items' table.
type itemRow struct {
	ID              string    `gorm:"column:id;primaryKey;size:64"`
	Name            string    `gorm:"column:name;size:255;not null"`
	Tag             string    `gorm:"column:tag;size:128;not null;uniqueIndex"`
	CurrentLocation string    `gorm:"column:current_location;size:64;not null"`
	LastUpdated     time.Time `gorm:"column:last_updated"`
}

// TableName overrides the table name.
func (itemRow) TableName() string {
	return "items"
}

func (r itemRow) toItem() tracking.Item {
	return tracking.Item{
		ID:              r.ID,
		Name:            r.Name,
		Tag:             r.Tag,
		CurrentLocation: tracking.RoomID(r.CurrentLocation),
		LastUpdated:     r.LastUpdated,
	}
}

// movementRow represents the append-only 'movements' table. The
// auto-increment id defines ledger order.
type movementRow struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID       string    `gorm:"column:item_id;size:64;not null;index"`
	ItemName     string    `gorm:"column:item_name;size:255"`
	Tag          string    `gorm:"column:tag;size:128"`
	FromLocation string    `gorm:"column:from_location;size:64;not null"`
	ToLocation   string    `gorm:"column:to_location;size:64;not null"`
	ReaderID     string    `gorm:"column:reader_id;size:128"`
	DetectedAt   int64     `gorm:"column:detected_at"`
	Timestamp    time.Time `gorm:"column:timestamp;not null"`
}

// TableName overrides the table name.
func (movementRow) TableName() string {
	return "movements"
}

func (r movementRow) toRecord() tracking.MovementRecord {
	return tracking.MovementRecord{
		ID:           tracking.RecordID(r.ID),
		ItemID:       r.ItemID,
		ItemName:     r.ItemName,
		Tag:          r.Tag,
		FromLocation: tracking.RoomID(r.FromLocation),
		ToLocation:   tracking.RoomID(r.ToLocation),
		ReaderID:     r.ReaderID,
		DetectedAt:   r.DetectedAt,
		Timestamp:    r.Timestamp,
	}
}

// memberRow represents the 'room_members' table: one row per (room, item).
type memberRow struct {
	Room   string `gorm:"column:room;primaryKey;size:64"`
	ItemID string `gorm:"column:item_id;primaryKey;size:64;index"`
}

// TableName overrides the table name.
func (memberRow) TableName() string {
	return "room_members"
}

// Schema lists, per table, the columns the store reads and writes.
func Schema() map[string][]string {
	return map[string][]string{
		"items":        {"id", "name", "tag", "current_location", "last_updated"},
		"movements":    {"id", "item_id", "item_name", "tag", "from_location", "to_location", "reader_id", "detected_at", "timestamp"},
		"room_members": {"room", "item_id"},
	}
}
