// Package memstore is an in-process tracking.Store.
//
// Each primitive is atomic on its own, but the store offers no multi-key
// transactions: it does not implement tracking.Transactor. It backs the
// simulate command and the reconciliation tests for the compensation and
// membership-repair paths.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"asset-tracker/core/tracking"
)

// Store keeps items, the movement ledger and room membership in memory.
type Store struct {
	mu      sync.RWMutex
	items   map[string]tracking.Item
	tags    map[string][]string
	ledger  []tracking.MovementRecord
	members map[tracking.RoomID]map[string]struct{}
	closed  bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		items:   make(map[string]tracking.Item),
		tags:    make(map[string][]string),
		members: make(map[tracking.RoomID]map[string]struct{}),
	}
}

var _ tracking.Store = (*Store)(nil)

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", tracking.ErrStoreUnavailable, err)
	}
	if s.closed {
		return fmt.Errorf("%w: store closed", tracking.ErrStoreUnavailable)
	}
	return nil
}

// FindByTag implements tracking.Store.
func (s *Store) FindByTag(ctx context.Context, tag string) (tracking.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return tracking.Item{}, err
	}

	ids := s.tags[tag]
	switch len(ids) {
	case 0:
		return tracking.Item{}, tracking.ErrItemNotFound
	case 1:
		return s.items[ids[0]], nil
	default:
		return tracking.Item{}, fmt.Errorf("%w: %s claimed by %v", tracking.ErrDuplicateTag, tag, ids)
	}
}

// GetItem implements tracking.Store.
func (s *Store) GetItem(ctx context.Context, id string) (tracking.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return tracking.Item{}, err
	}
	item, ok := s.items[id]
	if !ok {
		return tracking.Item{}, tracking.ErrItemNotFound
	}
	return item, nil
}

// ListItems implements tracking.Store.
func (s *Store) ListItems(ctx context.Context) ([]tracking.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]tracking.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateItem implements tracking.Store.
func (s *Store) CreateItem(ctx context.Context, item tracking.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.items[item.ID]; ok {
		return fmt.Errorf("%w: id %s", tracking.ErrItemExists, item.ID)
	}
	if len(s.tags[item.Tag]) > 0 {
		return fmt.Errorf("%w: tag %s", tracking.ErrItemExists, item.Tag)
	}
	s.items[item.ID] = item
	s.tags[item.Tag] = append(s.tags[item.Tag], item.ID)
	return nil
}

// ClaimTag attaches tag to an additional item without uniqueness checks. It
// exists to reproduce data-entry errors where two items share a tag.
func (s *Store) ClaimTag(item tracking.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	s.tags[item.Tag] = append(s.tags[item.Tag], item.ID)
}

// CompareAndSetLocation implements tracking.Store.
func (s *Store) CompareAndSetLocation(ctx context.Context, itemID string, expected, next tracking.RoomID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	item, ok := s.items[itemID]
	if !ok {
		return tracking.ErrItemNotFound
	}
	if item.CurrentLocation != expected {
		return fmt.Errorf("%w: item %s is at %q, expected %q", tracking.ErrPreconditionFailed, itemID, item.CurrentLocation, expected)
	}
	item.CurrentLocation = next
	item.LastUpdated = at
	s.items[itemID] = item
	return nil
}

// AppendMovement implements tracking.Store.
func (s *Store) AppendMovement(ctx context.Context, rec tracking.MovementRecord) (tracking.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	rec.ID = tracking.RecordID(len(s.ledger) + 1)
	s.ledger = append(s.ledger, rec)
	return rec.ID, nil
}

// ListMovements implements tracking.Store.
func (s *Store) ListMovements(ctx context.Context, filter tracking.MovementFilter) ([]tracking.MovementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make([]tracking.MovementRecord, 0, len(s.ledger))
	for _, rec := range s.ledger {
		if filter.ItemID != "" && rec.ItemID != filter.ItemID {
			continue
		}
		out = append(out, rec)
	}
	if filter.Newest {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// AddMember implements tracking.Store.
func (s *Store) AddMember(ctx context.Context, room tracking.RoomID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	set, ok := s.members[room]
	if !ok {
		set = make(map[string]struct{})
		s.members[room] = set
	}
	set[itemID] = struct{}{}
	return nil
}

// RemoveMember implements tracking.Store.
func (s *Store) RemoveMember(ctx context.Context, room tracking.RoomID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	set := s.members[room]
	if _, ok := set[itemID]; !ok {
		return false, nil
	}
	delete(set, itemID)
	return true, nil
}

// RoomsOf implements tracking.Store.
func (s *Store) RoomsOf(ctx context.Context, itemID string) ([]tracking.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var rooms []tracking.RoomID
	for room, set := range s.members {
		if _, ok := set[itemID]; ok {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms, nil
}

// Members implements tracking.Store.
func (s *Store) Members(ctx context.Context, room tracking.RoomID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.members[room]))
	for id := range s.members[room] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Membership implements tracking.Store.
func (s *Store) Membership(ctx context.Context) (map[string][]tracking.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make(map[string][]tracking.RoomID)
	for room, set := range s.members {
		for id := range set {
			out[id] = append(out[id], room)
		}
	}
	for id := range out {
		rooms := out[id]
		sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	}
	return out, nil
}

// Close implements tracking.Store. Later calls fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
