package tracking

import (
	"asset-tracker/core/dispatch"
	"asset-tracker/core/events"
	"asset-tracker/core/reconcile"
	"asset-tracker/core/tracking"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new tracking feature. bus may be nil, which disables
// the reader intake route.
func NewFeature(store tracking.Store, engine *reconcile.Engine, dispatcher *dispatch.Dispatcher, bus *events.Bus, rooms *tracking.Rooms, logger *zap.Logger) *Feature {
	svc := NewService(store, engine, dispatcher, bus, rooms, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "tracking"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
