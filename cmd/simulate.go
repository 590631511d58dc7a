package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"asset-tracker/core/dispatch"
	"asset-tracker/core/logger"
	"asset-tracker/core/reconcile"
	"asset-tracker/core/source"
	"asset-tracker/core/store/memstore"
	"asset-tracker/core/tracking"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simCount    int
	simInterval time.Duration
	simSeed     uint64
	simStay     float64
	simTags     string
	simRooms    string
	simPersist  bool
)

// simulateCmd drives the pipeline with generated detections.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Reconcile randomly generated detections",
	Long: `Generates random detections for the demo tags and reconciles them.

By default everything runs against an in-memory store seeded with the demo
inventory. With --persist the configured database is used instead.

Examples:
  # 20 events, reproducible
  simulate --count 20 --seed 42

  # Run against the database until interrupted
  simulate --count 0 --persist`,
	RunE: runSimulate,
}

func init() {
	RootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVar(&simCount, "count", 50, "Number of detections (0 runs until interrupted)")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 100*time.Millisecond, "Delay between detections")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Random seed (0 picks one)")
	simulateCmd.Flags().Float64Var(&simStay, "stay", 0.3, "Probability a tag is seen again in its last room")
	simulateCmd.Flags().StringVar(&simTags, "tags", strings.Join(demoTags(), ","), "Comma separated tags to detect")
	simulateCmd.Flags().StringVar(&simRooms, "rooms", tracking.DefaultRoomList, "Comma separated rooms (in-memory mode)")
	simulateCmd.Flags().BoolVar(&simPersist, "persist", false, "Use the configured database")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  tracking.Store
		rooms  *tracking.Rooms
		engine *reconcile.Engine
		logg   *zap.Logger
	)
	if simPersist {
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		store, rooms, engine, logg = rt.store, rt.rooms, rt.engine(), rt.logger
	} else {
		var err error
		if rooms, err = tracking.ParseRooms(simRooms); err != nil {
			return err
		}
		logg, err = logger.New(&logger.Config{Level: "info", Format: "console"}, logger.Rooms(rooms))
		if err != nil {
			return err
		}
		defer func() { _ = logg.Sync() }()
		store = memstore.New()
		engine = reconcile.NewEngine(store, logg, reconcile.Options{Rooms: rooms})
	}

	if _, err := seedDemo(ctx, store, engine, rooms, logg); err != nil {
		return err
	}

	tally := newTally()
	d := dispatch.New(engine, logg, dispatch.Options{
		Rooms: rooms,
		Sinks: []dispatch.Sink{dispatch.NewLogSink(logg), tally},
	})

	sim := &source.Simulator{
		Tags:      splitList(simTags),
		Rooms:     rooms.List(),
		Interval:  simInterval,
		StayRatio: simStay,
		Count:     simCount,
		Seed:      simSeed,
	}
	start := time.Now()
	if err := d.Run(ctx, sim); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Shutdown(drainCtx); err != nil {
		logg.Warn("Simulation drain incomplete", zap.Error(err))
	}

	tally.print(time.Since(start))
	return printRooms(context.Background(), store, rooms)
}

func splitList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printRooms(ctx context.Context, store tracking.Store, rooms *tracking.Rooms) error {
	fmt.Println("\n=== Room Inventory ===")
	for _, room := range rooms.List() {
		members, err := store.Members(ctx, room)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d items\n", room, len(members))
		for _, id := range members {
			item, err := store.GetItem(ctx, id)
			if err != nil {
				fmt.Printf("  - %s (unregistered)\n", id)
				continue
			}
			fmt.Printf("  - %s %s\n", item.Tag, item.Name)
		}
	}
	return nil
}
