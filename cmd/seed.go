package cmd

import (
	"context"
	"errors"
	"fmt"

	"asset-tracker/core/reconcile"
	"asset-tracker/core/tracking"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// demoItems is the sample inventory: eight tagged boxes.
var demoItems = []struct {
	Tag  string
	Name string
}{
	{"RFID001", "Glass Box #1"},
	{"RFID002", "Glass Box #2"},
	{"RFID003", "Product Package A"},
	{"RFID004", "Electronics Box"},
	{"RFID005", "Medical Supplies"},
	{"RFID006", "Tool Kit"},
	{"RFID007", "Spare Parts Container"},
	{"RFID008", "Documents Box"},
}

// seedCmd provisions the demo inventory.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the demo inventory",
	Long: `Registers eight demo items (RFID001 to RFID008) spread across the configured rooms.
Tags that are already registered are left untouched, so the command can be re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		created, err := seedDemo(ctx, rt.store, rt.engine(), rt.rooms, rt.logger)
		if err != nil {
			return err
		}
		fmt.Printf("Registered %d of %d demo items\n", created, len(demoItems))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)
}

// seedDemo registers the demo items missing from store, assigning rooms
// round-robin. It returns the number of items created.
func seedDemo(ctx context.Context, store tracking.Store, engine *reconcile.Engine, rooms *tracking.Rooms, logg *zap.Logger) (int, error) {
	list := rooms.List()
	created := 0
	for i, demo := range demoItems {
		_, err := store.FindByTag(ctx, demo.Tag)
		if err == nil {
			logg.Debug("Demo item already registered", zap.String("tag", demo.Tag))
			continue
		}
		if !errors.Is(err, tracking.ErrItemNotFound) {
			return created, fmt.Errorf("failed to look up %s: %w", demo.Tag, err)
		}

		_, err = engine.Register(ctx, tracking.Item{
			Name:            demo.Name,
			Tag:             demo.Tag,
			CurrentLocation: list[i%len(list)],
		})
		if err != nil {
			return created, fmt.Errorf("failed to register %s: %w", demo.Tag, err)
		}
		created++
	}
	return created, nil
}

func demoTags() []string {
	tags := make([]string, len(demoItems))
	for i, demo := range demoItems {
		tags[i] = demo.Tag
	}
	return tags
}
