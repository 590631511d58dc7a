package tracking

import "time"

// Item is a tracked asset.
type Item struct {
	// ID is the stable unique identifier.
	ID string `json:"id"`
	// Name is the display label.
	Name string `json:"name"`
	// Tag is the RFID tag claimed by this item. Unique across items.
	Tag string `json:"tag"`
	// CurrentLocation is the room the item is in. Never empty once registered.
	CurrentLocation RoomID `json:"current_location"`
	// LastUpdated is the time of the last location change.
	LastUpdated time.Time `json:"last_updated"`
}

// ItemSnapshot is what the item directory returns for a tag: the item
// identity and its location as of the read.
type ItemSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tag      string `json:"tag"`
	Location RoomID `json:"location"`
}

// Snapshot returns the directory view of the item.
func (i Item) Snapshot() ItemSnapshot {
	return ItemSnapshot{ID: i.ID, Name: i.Name, Tag: i.Tag, Location: i.CurrentLocation}
}

// DetectionEvent is a single observation of a tag by a reader.
type DetectionEvent struct {
	Tag  string `json:"tag" validate:"required,max=128"`
	Room RoomID `json:"room" validate:"required,max=64"`

	// Timestamp is the reader's clock in unix milliseconds. Recorded for
	// audit only; commit order is decided by the dispatcher.
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
	ReaderID  string `json:"reader_id" validate:"max=128"`
}

// RecordID is the position of a movement in the ledger. Ids increase with
// insertion order.
type RecordID uint64

// MovementRecord is an immutable ledger entry.
type MovementRecord struct {
	ID           RecordID  `json:"id"`
	ItemID       string    `json:"item_id"`
	ItemName     string    `json:"item_name"`
	Tag          string    `json:"tag"`
	FromLocation RoomID    `json:"from_location"`
	ToLocation   RoomID    `json:"to_location"`
	Timestamp    time.Time `json:"timestamp"`
	// ReaderID and DetectedAt describe the detection that caused the move.
	ReaderID   string `json:"reader_id,omitempty"`
	DetectedAt int64  `json:"detected_at,omitempty"`
}

// MovementFilter narrows ledger reads.
type MovementFilter struct {
	ItemID string
	// Limit caps the number of records; zero means no cap.
	Limit int
	// Newest returns the most recent records first.
	Newest bool
}
