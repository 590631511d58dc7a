package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"asset-tracker/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the repair command
	dryRunRepair bool
	yesConfirm   bool
)

// repairCmd realigns the room membership index with item locations.
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair room membership (report + optionally fix)",
	Long: `Compares every item's location with the room membership index.

Reports items missing from their room, items listed in other rooms and
membership entries for unregistered ids, then optionally fixes them.
Every action is re-checked against the item's current location before it runs.

Examples:
  # Report, then prompt before fixing
  repair

  # Fix without prompting
  repair --yes

  # Plan only
  repair --dry-run`,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().BoolVar(&dryRunRepair, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	repairCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm repairs (non-interactive)")
	RootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	l := rt.logger

	l.Info("Planning membership repair...")
	plan, err := reconcile.PlanRepair(ctx, rt.store)
	if err != nil {
		return fmt.Errorf("failed to plan repair: %w", err)
	}
	printPlanSummary(l, plan)

	if len(plan.Actions) == 0 {
		l.Info("Membership is consistent, nothing to do")
		return nil
	}
	if dryRunRepair {
		l.Info("Dry-run mode: no changes will be made")
		return nil
	}
	if !confirmRepair() {
		l.Info("Repair cancelled by user")
		return nil
	}

	executed, err := reconcile.ApplyRepair(ctx, rt.store, plan, reconcile.RepairOptions{Confirmed: true})
	if err != nil {
		return fmt.Errorf("repair stopped after %d actions: %w", executed, err)
	}
	l.Info("Membership repair completed",
		zap.Int("executed", executed),
		zap.Int("skipped", len(plan.Actions)-executed),
	)
	return nil
}

// printPlanSummary logs the plan summary and a sample of the actions.
func printPlanSummary(l *zap.Logger, plan *reconcile.RepairPlan) {
	s := plan.Summary
	l.Info("Membership summary",
		zap.Int("total_items", s.TotalItems),
		zap.Int("consistent", s.Consistent),
		zap.Int("unlisted", s.Unlisted),
		zap.Int("stray", s.Stray),
		zap.Int("orphans", s.Orphans),
	)
	if len(plan.Actions) == 0 {
		return
	}

	l.Info("Planned actions",
		zap.Int("remove_actions", s.RemoveActions),
		zap.Int("add_actions", s.AddActions),
	)
	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("item_id", action.ItemID),
			zap.String("room", string(action.Room)),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmRepair prompts the user for confirmation or uses --yes flag.
func confirmRepair() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to apply the repairs: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
