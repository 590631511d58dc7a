package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-tracker/core/dispatch"
	"asset-tracker/core/events"
	"asset-tracker/core/loader"
	"asset-tracker/core/logger"
	"asset-tracker/core/metrics"
	"asset-tracker/core/middleware/auth"
	"asset-tracker/core/middleware/rayid"
	"asset-tracker/core/source"

	"asset-tracker/feature/archive"
	"asset-tracker/feature/integrity"
	trackingfeature "asset-tracker/feature/tracking"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the asset tracker server",
	Long: `Starts the HTTP API, the reconciliation dispatcher and the detection sources.
On SIGINT or SIGTERM intake stops and accepted detections are drained before exit.`,
	RunE: runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logg := rt.cfg, rt.logger
	zap.ReplaceGlobals(logg)

	// Reconciliation pipeline
	m := metrics.New()
	bus := events.NewBus(cfg.Bus, logg)
	engine := rt.engine()
	d := dispatch.New(engine, logg, dispatch.Options{
		Rooms:          rt.rooms,
		ReconnectDelay: cfg.Tracking.ReconnectDelay,
		Sinks:          []dispatch.Sink{dispatch.NewLogSink(logg), m, events.NewResultPublisher(bus)},
		Observer:       m,
	})

	sources := []dispatch.Source{source.NewBus(bus)}
	if cfg.Tracking.ReplayFile != "" {
		sources = append(sources, source.NewFile(cfg.Tracking.ReplayFile, "replay", logg))
	}

	// Archive storage is optional
	client, err := rt.storageClient(ctx)
	if err != nil {
		logg.Warn("Storage unavailable, archive disabled", zap.Error(err))
		client = nil
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	// RayID first so every log line carries it
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		l := logger.WithRayID(logg, c)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		l.Debug("Request completed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	})
	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{"/health", "/metrics"}}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if d.Closed() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "draining"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	mgr := loader.NewManager()
	mgr.Register(trackingfeature.NewFeature(rt.store, engine, d, bus, rt.rooms, logg))
	mgr.Register(integrity.NewFeature(rt.store, client, cfg.Storage.Bucket, rt.db, logg))
	mgr.Register(archive.NewFeature(rt.store, client, cfg.Storage, rt.rooms, logg))
	if err := mgr.LoadAll(app); err != nil {
		return err
	}
	for _, f := range mgr.Features() {
		logg.Info("Feature registered", zap.String("feature", f.Name()), zap.Bool("enabled", f.IsEnabled()))
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- d.Run(ctx, sources...)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", cfg.Server.Port))
		serveErr <- app.Listen(cfg.Server.Address())
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logg.Error("Server failed", zap.Error(err))
	}

	// Shutdown: HTTP intake first, then drain the dispatcher, then the bus.
	logg.Info("Shutting down", zap.Duration("timeout", cfg.Tracking.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Tracking.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := d.Shutdown(shutdownCtx); err != nil {
		logg.Warn("Dispatcher shutdown incomplete, queued detections dropped", zap.Error(err))
	}
	if err := <-runDone; err != nil {
		logg.Warn("Sources stopped with error", zap.Error(err))
	}
	if err := bus.Close(); err != nil {
		logg.Warn("Failed to close event bus", zap.Error(err))
	}
	logg.Info("Shutdown complete")
	return nil
}
