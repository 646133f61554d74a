package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"flakemart/internal/loader"
	"flakemart/internal/pipeline"
	"flakemart/internal/ui"
	"flakemart/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply a snapshot batch and recompute all segment assessments",
	Long: `Runs both pipeline stages for one asof date: the dimension historian
applies the snapshot batch against the current rows, then every entity's
segment and churn label is recomputed from its full transaction history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asofFlag, _ := cmd.Flags().GetString("asof")
		snapshotFile, _ := cmd.Flags().GetString("snapshots")
		transactionFile, _ := cmd.Flags().GetString("transactions")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ensureSchema, _ := cmd.Flags().GetBool("ensure-schema")

		asOf, err := parseAsOf(asofFlag)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if dryRun {
			cfg.Pipeline.DryRun = true
		}

		logger, err := pipeline.NewLogger(cfg.Pipeline.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		service, err := buildService(cfg)
		if err != nil {
			return err
		}
		defer service.Close()

		if ensureSchema {
			if err := service.EnsureSchema(); err != nil {
				return err
			}
		}

		store, fileIssues, err := withTransactionFile(service, transactionFile)
		if err != nil {
			return err
		}

		runner, err := pipeline.NewRunner(store, cfg, logger)
		if err != nil {
			return err
		}

		var snapshots []models.Snapshot
		if snapshotFile != "" {
			var snapIssues []models.RecordIssue
			snapshots, snapIssues, err = loader.ReadSnapshots(snapshotFile)
			fileIssues = append(fileIssues, snapIssues...)
		} else {
			snapshots, err = service.LoadSnapshots()
		}
		if err != nil {
			return err
		}

		report, err := runner.Run(cmd.Context(), snapshots, asOf)
		if err != nil {
			return err
		}
		report.Issues = append(fileIssues, report.Issues...)

		ui.RenderReport(os.Stdout, report)
		if report.HasErrors() {
			ui.ShowWarning("run completed with record-level errors, see the issue table above")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("asof", "", "Effective date for the run (YYYY-MM-DD, default today)")
	runCmd.Flags().String("snapshots", "", "Read snapshots from a CSV/JSON file instead of the staging table")
	runCmd.Flags().String("transactions", "", "Read transactions from a CSV/JSON file instead of the fact table")
	runCmd.Flags().Bool("dry-run", false, "Compute everything but persist nothing")
	runCmd.Flags().Bool("ensure-schema", false, "Create missing tables before the run")
}
