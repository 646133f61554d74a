package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"flakemart/internal/loader"
	"flakemart/internal/pipeline"
	"flakemart/internal/ui"
	"flakemart/pkg/models"
)

var historizeCmd = &cobra.Command{
	Use:   "historize",
	Short: "Apply a snapshot batch to the customer dimension",
	Long: `Applies one batch of entity snapshots against the versioned dimension:
new entities open their first version, tracked-attribute changes close the
current version and open a new one, and everything else is overwritten in
place without touching history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asofFlag, _ := cmd.Flags().GetString("asof")
		snapshotFile, _ := cmd.Flags().GetString("snapshots")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

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

		runner, err := pipeline.NewRunner(service, cfg, logger)
		if err != nil {
			return err
		}

		var snapshots []models.Snapshot
		var fileIssues []models.RecordIssue
		if snapshotFile != "" {
			snapshots, fileIssues, err = loader.ReadSnapshots(snapshotFile)
		} else {
			snapshots, err = service.LoadSnapshots()
		}
		if err != nil {
			return err
		}

		result, err := runner.Historize(cmd.Context(), snapshots, asOf)
		if err != nil {
			return err
		}

		fmt.Printf("Dimension batch applied: %d new, %d changed, %d unchanged, %d skipped\n",
			result.Created, result.Changed, result.Unchanged, result.Skipped)
		for _, issue := range append(fileIssues, result.Issues...) {
			ui.ShowWarning(fmt.Sprintf("[%s] %s %s", issue.Code, issue.EntityID, issue.Message))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historizeCmd)

	historizeCmd.Flags().String("asof", "", "Effective date for the batch (YYYY-MM-DD, default today)")
	historizeCmd.Flags().String("snapshots", "", "Read snapshots from a CSV/JSON file instead of the staging table")
	historizeCmd.Flags().Bool("dry-run", false, "Classify the batch but persist nothing")
}
