package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"asset-tracker/core/dispatch"
	"asset-tracker/core/events"
	"asset-tracker/core/reconcile"
	"asset-tracker/core/tracking"
	"asset-tracker/core/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMovementLimit is used when no limit is requested.
	DefaultMovementLimit = 50
	// MaxMovementLimit caps a single ledger page.
	MaxMovementLimit = 1000
)

// ErrBusDisabled is returned by Publish when no event bus is configured.
var ErrBusDisabled = errors.New("event bus disabled")

// RegisterRequest is the payload for provisioning an item.
type RegisterRequest struct {
	ID       string `json:"id" validate:"max=64"`
	Name     string `json:"name" validate:"required,max=128"`
	Tag      string `json:"tag" validate:"required,max=128"`
	Location string `json:"location" validate:"required,max=64"`
}

// RoomSummary is one room with its item count.
type RoomSummary struct {
	Room  tracking.RoomID `json:"room"`
	Items int             `json:"items"`
}

// Service implements the tracking API.
type Service struct {
	store      tracking.Store
	engine     *reconcile.Engine
	dispatcher *dispatch.Dispatcher
	bus        *events.Bus
	rooms      *tracking.Rooms
	logger     *zap.Logger
}

// NewService creates a tracking service. bus may be nil.
func NewService(store tracking.Store, engine *reconcile.Engine, dispatcher *dispatch.Dispatcher, bus *events.Bus, rooms *tracking.Rooms, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		bus:        bus,
		rooms:      rooms,
		logger:     logger,
	}
}

// Submit reconciles ev and returns its result.
func (s *Service) Submit(ctx context.Context, ev tracking.DetectionEvent) (tracking.Result, error) {
	return s.dispatcher.Submit(ctx, ev)
}

// Publish validates ev and queues it on the detections topic. readerID
// overrides the payload's reader id.
func (s *Service) Publish(ctx context.Context, readerID string, ev tracking.DetectionEvent) error {
	if s.bus == nil {
		return ErrBusDisabled
	}
	if readerID != "" {
		ev.ReaderID = readerID
	}
	if err := s.dispatcher.Validate(&ev); err != nil {
		return err
	}
	return s.bus.PublishDetection(ctx, ev)
}

// Register provisions an item in its initial room.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (tracking.Item, error) {
	req.Tag = strings.TrimSpace(req.Tag)
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if err := validation.Validate(req); err != nil {
		return tracking.Item{}, err
	}
	room := tracking.RoomID(req.Location)
	if err := s.rooms.Validate(room); err != nil {
		return tracking.Item{}, err
	}
	return s.engine.Register(ctx, tracking.Item{
		ID:              req.ID,
		Name:            req.Name,
		Tag:             req.Tag,
		CurrentLocation: room,
	})
}

// ListItems returns every registered item.
func (s *Service) ListItems(ctx context.Context) ([]tracking.Item, error) {
	return s.store.ListItems(ctx)
}

// GetByTag returns the item claiming tag.
func (s *Service) GetByTag(ctx context.Context, tag string) (tracking.Item, error) {
	return s.store.FindByTag(ctx, tag)
}

// Rooms returns every configured room with its member count.
func (s *Service) Rooms(ctx context.Context) ([]RoomSummary, error) {
	rooms := s.rooms.List()
	out := make([]RoomSummary, len(rooms))

	g, gctx := errgroup.WithContext(ctx)
	for i, room := range rooms {
		g.Go(func() error {
			ids, err := s.store.Members(gctx, room)
			if err != nil {
				return fmt.Errorf("members of %q: %w", room, err)
			}
			out[i] = RoomSummary{Room: room, Items: len(ids)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RoomInventory resolves the members of room to items. Membership entries
// for unregistered ids are skipped.
func (s *Service) RoomInventory(ctx context.Context, room tracking.RoomID) ([]tracking.Item, error) {
	if err := s.rooms.Validate(room); err != nil {
		return nil, err
	}
	ids, err := s.store.Members(ctx, room)
	if err != nil {
		return nil, err
	}

	items := make([]tracking.Item, len(ids))
	found := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			item, err := s.store.GetItem(gctx, id)
			if errors.Is(err, tracking.ErrItemNotFound) {
				s.logger.Warn("Room lists an unregistered item", zap.String("room", string(room)), zap.String("item_id", id))
				return nil
			}
			if err != nil {
				return err
			}
			items[i], found[i] = item, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := items[:0]
	for i, item := range items {
		if found[i] {
			out = append(out, item)
		}
	}
	return out, nil
}

// Movements returns ledger records, newest first.
func (s *Service) Movements(ctx context.Context, itemID string, limit int) ([]tracking.MovementRecord, error) {
	if limit <= 0 {
		limit = DefaultMovementLimit
	}
	if limit > MaxMovementLimit {
		limit = MaxMovementLimit
	}
	return s.store.ListMovements(ctx, tracking.MovementFilter{ItemID: itemID, Limit: limit, Newest: true})
}
