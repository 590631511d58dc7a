package tracking

import (
	"errors"
	"strconv"

	"asset-tracker/core/events"
	"asset-tracker/core/logger"
	"asset-tracker/core/tracking"
	"asset-tracker/core/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for tracking.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the tracking routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/detections", h.HandleDetection)
	app.Post("/readers/:reader/detections", h.HandleReaderDetection)

	items := app.Group("/items")
	items.Get("/", h.HandleListItems)
	items.Post("/", h.HandleRegisterItem)
	items.Get("/:tag", h.HandleGetItem)

	rooms := app.Group("/rooms")
	rooms.Get("/", h.HandleListRooms)
	rooms.Get("/:room/items", h.HandleRoomItems)

	app.Get("/movements", h.HandleListMovements)
}

// HandleDetection reconciles a detection and returns the result.
// @Summary Reconcile Detection
// @Description Applies one RFID detection and returns what it changed.
// @Tags tracking
// @Accept json
// @Produce json
// @Param event body tracking.DetectionEvent true "Detection"
// @Success 200 {object} events.ResultMessage "Domain outcome"
// @Failure 400 {object} map[string]string "Invalid event"
// @Failure 503 {object} events.ResultMessage "Directory or store unavailable"
// @Router /detections [post]
func (h *Handler) HandleDetection(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var ev tracking.DetectionEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	res, err := h.service.Submit(c.UserContext(), ev)
	if err != nil {
		status := errorStatus(err)
		if status >= fiber.StatusInternalServerError {
			l.Error("Detection not processed", zap.String("tag", ev.Tag), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	body := events.ResultMessage{Result: res, Reason: res.Error()}
	if res.Infra() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}

// HandleReaderDetection queues a detection reported by a reader.
// @Summary Queue Reader Detection
// @Description Publishes a detection on the event bus for asynchronous reconciliation.
// @Tags tracking
// @Accept json
// @Produce json
// @Param reader path string true "Reader ID"
// @Param event body tracking.DetectionEvent true "Detection"
// @Success 202 {object} map[string]string "Queued"
// @Failure 400 {object} map[string]string "Invalid event"
// @Failure 503 {object} map[string]string "Event bus disabled"
// @Router /readers/{reader}/detections [post]
func (h *Handler) HandleReaderDetection(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var ev tracking.DetectionEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.service.Publish(c.UserContext(), c.Params("reader"), ev); err != nil {
		status := errorStatus(err)
		if status >= fiber.StatusInternalServerError {
			l.Error("Failed to queue detection", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}

// HandleListItems returns all registered items.
// @Summary List Items
// @Tags items
// @Produce json
// @Success 200 {array} tracking.Item
// @Failure 503 {object} map[string]string "Store unavailable"
// @Router /items [get]
func (h *Handler) HandleListItems(c *fiber.Ctx) error {
	items, err := h.service.ListItems(c.UserContext())
	if err != nil {
		return h.fail(c, "Failed to list items", err)
	}
	return c.JSON(items)
}

// HandleGetItem returns the item claiming a tag.
// @Summary Get Item By Tag
// @Tags items
// @Produce json
// @Param tag path string true "RFID Tag"
// @Success 200 {object} tracking.Item
// @Failure 404 {object} map[string]string "Unknown tag"
// @Failure 409 {object} map[string]string "Tag claimed by several items"
// @Router /items/{tag} [get]
func (h *Handler) HandleGetItem(c *fiber.Ctx) error {
	item, err := h.service.GetByTag(c.UserContext(), c.Params("tag"))
	if err != nil {
		return h.fail(c, "Failed to resolve tag", err)
	}
	return c.JSON(item)
}

// HandleRegisterItem provisions a new item.
// @Summary Register Item
// @Tags items
// @Accept json
// @Produce json
// @Param item body RegisterRequest true "Item"
// @Success 201 {object} tracking.Item
// @Failure 400 {object} map[string]any "Validation failed"
// @Failure 409 {object} map[string]string "Item exists"
// @Router /items [post]
func (h *Handler) HandleRegisterItem(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	item, err := h.service.Register(c.UserContext(), req)
	if err != nil {
		if fields := validation.FormatValidationErrors(err); len(fields) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": fields,
			})
		}
		if errors.Is(err, tracking.ErrUnknownRoom) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if !errors.Is(err, tracking.ErrPartialCommit) {
			return h.fail(c, "Failed to register item", err)
		}
		logger.WithRayID(h.service.logger, c).Warn("Item registered without membership", zap.Error(err))
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// HandleListRooms returns the configured rooms with their item counts.
// @Summary List Rooms
// @Tags rooms
// @Produce json
// @Success 200 {array} RoomSummary
// @Router /rooms [get]
func (h *Handler) HandleListRooms(c *fiber.Ctx) error {
	rooms, err := h.service.Rooms(c.UserContext())
	if err != nil {
		return h.fail(c, "Failed to list rooms", err)
	}
	return c.JSON(rooms)
}

// HandleRoomItems returns the items listed in a room.
// @Summary Room Inventory
// @Tags rooms
// @Produce json
// @Param room path string true "Room"
// @Success 200 {array} tracking.Item
// @Failure 404 {object} map[string]string "Unknown room"
// @Router /rooms/{room}/items [get]
func (h *Handler) HandleRoomItems(c *fiber.Ctx) error {
	items, err := h.service.RoomInventory(c.UserContext(), tracking.RoomID(c.Params("room")))
	if err != nil {
		return h.fail(c, "Failed to read room inventory", err)
	}
	return c.JSON(items)
}

// HandleListMovements returns ledger records, newest first.
// @Summary List Movements
// @Tags movements
// @Produce json
// @Param limit query int false "Maximum records (default 50, max 1000)"
// @Param item_id query string false "Only this item"
// @Success 200 {array} tracking.MovementRecord
// @Failure 400 {object} map[string]string "Invalid limit"
// @Router /movements [get]
func (h *Handler) HandleListMovements(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a non-negative integer",
			})
		}
		limit = n
	}

	records, err := h.service.Movements(c.UserContext(), c.Query("item_id"), limit)
	if err != nil {
		return h.fail(c, "Failed to list movements", err)
	}
	return c.JSON(records)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, tracking.ErrInvalidEvent):
		return fiber.StatusBadRequest
	case errors.Is(err, tracking.ErrItemNotFound), errors.Is(err, tracking.ErrUnknownRoom):
		return fiber.StatusNotFound
	case errors.Is(err, tracking.ErrItemExists), errors.Is(err, tracking.ErrDuplicateTag):
		return fiber.StatusConflict
	case errors.Is(err, tracking.ErrDispatcherClosed),
		errors.Is(err, tracking.ErrStoreUnavailable),
		errors.Is(err, tracking.ErrDirectoryUnavailable),
		errors.Is(err, ErrBusDisabled):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
