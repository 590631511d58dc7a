package cmd

import (
	"context"
	"errors"
	"fmt"

	"asset-tracker/feature/integrity"
	"asset-tracker/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the tracking data",
	Long:  `Checks room membership, the movement ledger, the database schema and the archive bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), checkAll)
	},
}

var membershipCmd = &cobra.Command{
	Use:   "membership",
	Short: "Check and fix room membership",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), checkMembership)
	},
}

var ledgerCheckCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Check the movement ledger chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), checkLedger)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), checkSchema)
	},
}

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Check and fix the archive bucket layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), checkStructure)
	},
}

type checkSet int

const (
	checkMembership checkSet = 1 << iota
	checkLedger
	checkSchema
	checkStructure

	checkAll = checkMembership | checkLedger | checkSchema | checkStructure
)

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(membershipCmd, ledgerCheckCmd, schemaCmd, structureCmd)

	membershipCmd.Flags().BoolVar(&fixFlag, "fix", false, "Repair membership drift")
	structureCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create missing folders")
}

func runIntegrityChecks(ctx context.Context, set checkSet) error {
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	logg := rt.logger

	client, err := rt.storageClient(ctx)
	if err != nil {
		logg.Warn("Storage unavailable", zap.Error(err))
		client = nil
	}
	svc := integrity.NewService(rt.store, client, rt.cfg.Storage.Bucket, rt.db, logg)
	only := set != checkAll
	failed := false

	if set&checkMembership != 0 {
		logg.Info("Checking room membership...")
		plan, err := svc.CheckMembership(ctx)
		if err != nil {
			return fmt.Errorf("membership check failed: %w", err)
		}
		if len(plan.Actions) == 0 {
			logg.Info("Membership is consistent.")
		} else {
			printPlanSummary(logg, plan)
			switch {
			case only && fixFlag:
				executed, err := svc.FixMembership(ctx, plan, false)
				if err != nil {
					return fmt.Errorf("failed to repair membership: %w", err)
				}
				logg.Info("Membership repaired.", zap.Int("executed", executed))
			case only:
				logg.Info("Run with --fix to repair membership.")
				failed = true
			default:
				failed = true
			}
		}
	}

	if set&checkLedger != 0 {
		logg.Info("Checking movement ledger...")
		report, err := svc.CheckLedger(ctx)
		if err != nil {
			return fmt.Errorf("ledger check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Ledger is intact.", zap.Int("records", report.Records))
		} else {
			failed = true
			logg.Warn("Ledger inconsistencies detected",
				zap.Int("breaks", len(report.Breaks)),
				zap.Int("drift", len(report.Drift)),
				zap.Strings("unknown_items", report.UnknownItems),
			)
			for _, d := range report.Drift {
				logg.Warn("Location drift",
					zap.String("item_id", d.ItemID),
					zap.String("location", string(d.Location)),
					zap.String("ledger", string(d.Ledger)),
				)
			}
		}
	}

	if set&checkSchema != 0 {
		logg.Info("Checking database schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Schema is intact.", zap.String("driver", report.Driver))
		} else {
			failed = true
			for table, tbl := range report.Tables {
				if tbl.Status != "ok" {
					logg.Warn("Table mismatch",
						zap.String("table", table),
						zap.String("status", tbl.Status),
						zap.Strings("missing_columns", tbl.MissingColumns),
					)
				}
			}
		}
	}

	if set&checkStructure != 0 {
		logg.Info("Checking archive structure...")
		missing, err := svc.CheckStructure(ctx)
		switch {
		case errors.Is(err, checks.ErrStorageDisabled):
			logg.Info("Storage disabled, skipping archive structure.")
		case err != nil:
			return fmt.Errorf("structure check failed: %w", err)
		case len(missing) == 0:
			logg.Info("Archive structure is intact.")
		case only && fixFlag:
			if err := svc.FixStructure(ctx, missing); err != nil {
				return fmt.Errorf("failed to fix structure: %w", err)
			}
			logg.Info("Archive structure fixed.")
		default:
			failed = true
			logg.Warn("Missing folders detected", zap.Strings("missing", missing))
			if only {
				logg.Info("Run with --fix to create missing folders.")
			}
		}
	}

	if failed {
		return errors.New("integrity checks found problems")
	}
	return nil
}
