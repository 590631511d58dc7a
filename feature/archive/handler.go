package archive

import (
	"errors"
	"strings"

	"asset-tracker/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the archive.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the archive routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/archive")
	group.Get("/", h.HandleList)
	group.Post("/ledger", h.HandleExportLedger)
	group.Post("/inventory", h.HandleExportInventory)
	group.Get("/objects/*", h.HandleDownload)
}

// HandleExportLedger uploads the movement ledger.
// @Summary Export Ledger
// @Description Uploads the movement ledger as JSON Lines and applies retention.
// @Tags archive
// @Produce json
// @Success 201 {object} Export "Export"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /archive/ledger [post]
func (h *Handler) HandleExportLedger(c *fiber.Ctx) error {
	export, err := h.service.ExportLedger(c.UserContext())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Ledger export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(export)
}

// HandleExportInventory uploads an inventory snapshot.
// @Summary Export Inventory
// @Tags archive
// @Produce json
// @Success 201 {object} Export "Export"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /archive/inventory [post]
func (h *Handler) HandleExportInventory(c *fiber.Ctx) error {
	export, err := h.service.ExportInventory(c.UserContext())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Inventory export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(export)
}

// HandleList lists stored exports.
// @Summary List Exports
// @Tags archive
// @Produce json
// @Param prefix query string false "ledger or inventory"
// @Success 200 {array} Object "Exports"
// @Failure 400 {object} map[string]string "Invalid prefix"
// @Router /archive [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	objects, err := h.service.List(c.UserContext(), c.Query("prefix"))
	if errors.Is(err, ErrInvalidKey) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Listing exports failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if objects == nil {
		objects = []Object{}
	}
	return c.JSON(objects)
}

// HandleDownload streams a stored export.
// @Summary Download Export
// @Tags archive
// @Param key path string true "Object key"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string "Invalid key"
// @Router /archive/objects/{key} [get]
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	key := c.Params("*")
	body, err := h.service.Open(c.UserContext(), key)
	if errors.Is(err, ErrInvalidKey) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Download failed", zap.String("key", key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	contentType := fiber.MIMEApplicationJSON
	if strings.HasSuffix(key, ".jsonl") {
		contentType = "application/x-ndjson"
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.SendStream(body)
}
