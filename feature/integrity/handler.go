package integrity

import (
	"errors"

	"asset-tracker/core/logger"
	"asset-tracker/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/membership", h.HandleMembershipCheck)
	group.Get("/ledger", h.HandleLedgerCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/structure", h.HandleStructureCheck)
}

func skipped(err error) bool {
	return errors.Is(err, checks.ErrStorageDisabled) || errors.Is(err, ErrNoDatabase)
}

func section(v any, err error) any {
	switch {
	case err == nil:
		return v
	case skipped(err):
		return fiber.Map{"status": "skipped", "reason": err.Error()}
	default:
		return fiber.Map{"status": "error", "error": err.Error()}
	}
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs all read-only integrity checks (Membership, Ledger, Schema, Structure).
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.UserContext()
	report := make(map[string]any)

	plan, err := h.service.CheckMembership(ctx)
	report["membership"] = section(plan, err)

	ledger, err := h.service.CheckLedger(ctx)
	report["ledger"] = section(ledger, err)

	schema, err := h.service.CheckSchema()
	report["schema"] = section(schema, err)

	if missing, err := h.service.CheckStructure(ctx); err != nil {
		report["structure"] = section(nil, err)
	} else {
		report["structure"] = fiber.Map{"status": "ok", "missing": missing}
	}

	return c.JSON(report)
}

// HandleMembershipCheck checks and optionally repairs room membership.
// @Summary Check Room Membership
// @Description Compares item locations with room membership. Optionally applies the planned repairs.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Apply repairs"
// @Param dry_run query boolean false "Plan the fix without writing"
// @Success 200 {object} reconcile.RepairPlan "Membership Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/membership [get]
func (h *Handler) HandleMembershipCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"
	dryRun := c.Query("dry_run") == "true"

	plan, err := h.service.CheckMembership(c.UserContext())
	if err != nil {
		l.Error("Membership check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(plan.Actions) == 0 || !fix {
		return c.JSON(plan)
	}

	l.Warn("Membership drift detected",
		zap.Int("removals", plan.Summary.RemoveActions),
		zap.Int("additions", plan.Summary.AddActions),
		zap.Bool("dry_run", dryRun),
	)
	executed, err := h.service.FixMembership(c.UserContext(), plan, dryRun)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":    "Failed to repair membership",
			"details":  err.Error(),
			"executed": executed,
		})
	}
	status := "fixed"
	if dryRun {
		status = "dry_run"
	}
	return c.JSON(fiber.Map{
		"status":   status,
		"executed": executed,
		"plan":     plan,
	})
}

// HandleLedgerCheck replays the movement ledger.
// @Summary Check Movement Ledger
// @Description Verifies that every item's movements form an unbroken chain ending at its current location.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.LedgerReport "Ledger Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/ledger [get]
func (h *Handler) HandleLedgerCheck(c *fiber.Ctx) error {
	report, err := h.service.CheckLedger(c.UserContext())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Ledger check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleSchemaCheck checks the database schema.
// @Summary Check Database Schema
// @Description Checks that the database has every table and column the store uses.
// @Tags integrity
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	report, err := h.service.CheckSchema()
	if skipped(err) {
		return c.JSON(section(nil, err))
	}
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleStructureCheck checks and optionally fixes the archive bucket layout.
// @Summary Check Archive Structure
// @Description Checks if the archive folders exist in the storage bucket. Optionally fixes missing folders.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Fix missing folders"
// @Success 200 {object} map[string]interface{} "Structure Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/structure [get]
func (h *Handler) HandleStructureCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	missing, err := h.service.CheckStructure(c.UserContext())
	if skipped(err) {
		return c.JSON(section(nil, err))
	}
	if err != nil {
		l.Error("Structure check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(missing) > 0 {
		l.Warn("Missing folders detected", zap.Strings("missing", missing))

		if fix {
			l.Info("Attempting to fix missing folders")
			if err := h.service.FixStructure(c.UserContext(), missing); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to fix structure",
					"details": err.Error(),
					"missing": missing,
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"fixed":  missing,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"missing": missing,
	})
}
