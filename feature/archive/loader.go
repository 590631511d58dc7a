package archive

import (
	"asset-tracker/core/storage"
	"asset-tracker/core/tracking"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new Archive feature. A nil client disables it.
func NewFeature(store tracking.Store, client storage.Client, cfg storage.Config, rooms *tracking.Rooms, logger *zap.Logger) *Feature {
	svc := NewService(store, client, cfg.Bucket, cfg.Retain, rooms, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Service returns the export service for use outside HTTP.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "archive"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.service.client != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
