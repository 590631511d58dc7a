package cmd

import (
	"errors"
	"fmt"
	"os"

	"asset-tracker/core/tracking"
	"asset-tracker/feature/archive"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	tailLimit  int
	tailItemID string
)

// ledgerCmd is the parent command for ledger operations.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Read and export the movement ledger",
}

var ledgerTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the most recent movements as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		records, err := rt.store.ListMovements(ctx, tracking.MovementFilter{
			ItemID: tailItemID,
			Limit:  tailLimit,
			Newest: true,
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		for i := len(records) - 1; i >= 0; i-- {
			if err := enc.Encode(records[i]); err != nil {
				return err
			}
		}
		return nil
	},
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload the ledger and an inventory snapshot to the archive bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		client, err := rt.storageClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		if client == nil {
			return errors.New("storage is disabled (set STORAGE_ENABLED=true)")
		}

		svc := archive.NewService(rt.store, client, rt.cfg.Storage.Bucket, rt.cfg.Storage.Retain, rt.rooms, rt.logger)
		ledger, err := svc.ExportLedger(ctx)
		if err != nil {
			return err
		}
		inventory, err := svc.ExportInventory(ctx)
		if err != nil {
			return err
		}

		fmt.Println("\n=== Archive Export ===")
		fmt.Printf("Ledger: %s (%d records)\n", ledger.Key, ledger.Records)
		fmt.Printf("Inventory: %s (%d items)\n", inventory.Key, inventory.Records)
		if len(ledger.Pruned) > 0 {
			fmt.Printf("Pruned: %d old exports\n", len(ledger.Pruned))
		}
		return nil
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerTailCmd, ledgerExportCmd)
	ledgerTailCmd.Flags().IntVar(&tailLimit, "limit", 20, "Number of records")
	ledgerTailCmd.Flags().StringVar(&tailItemID, "item", "", "Only this item id")
	RootCmd.AddCommand(ledgerCmd)
}
