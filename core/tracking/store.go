package tracking

import (
	"context"
	"time"
)

// Store is the persistence boundary for items, the movement ledger and room
// membership. Implementations wrap infrastructure failures with
// ErrStoreUnavailable.
type Store interface {
	// FindByTag returns the item claiming tag, ErrItemNotFound or
	// ErrDuplicateTag.
	FindByTag(ctx context.Context, tag string) (Item, error)
	// GetItem returns the item with the given id.
	GetItem(ctx context.Context, id string) (Item, error)
	// ListItems returns all items ordered by id.
	ListItems(ctx context.Context) ([]Item, error)
	// CreateItem provisions a new item. Membership is not touched.
	CreateItem(ctx context.Context, item Item) error

	// CompareAndSetLocation moves the item to next only if its current
	// location equals expected, otherwise ErrPreconditionFailed.
	CompareAndSetLocation(ctx context.Context, itemID string, expected, next RoomID, at time.Time) error

	// AppendMovement inserts a ledger record and returns its id.
	AppendMovement(ctx context.Context, rec MovementRecord) (RecordID, error)
	// ListMovements reads the ledger.
	ListMovements(ctx context.Context, filter MovementFilter) ([]MovementRecord, error)

	// AddMember lists itemID in room. Adding an existing member is a no-op.
	AddMember(ctx context.Context, room RoomID, itemID string) error
	// RemoveMember unlists itemID from room and reports whether it was listed.
	RemoveMember(ctx context.Context, room RoomID, itemID string) (bool, error)
	// RoomsOf returns every room currently listing itemID.
	RoomsOf(ctx context.Context, itemID string) ([]RoomID, error)
	// Members returns the item ids listed in room, sorted.
	Members(ctx context.Context, room RoomID) ([]string, error)
	// Membership returns the whole index as item id -> rooms listing it.
	Membership(ctx context.Context) (map[string][]RoomID, error)

	// Close releases the underlying resources.
	Close() error
}

// Transactor is implemented by stores that can run several primitives as one
// atomic unit. fn receives a Store bound to the transaction; returning an
// error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
