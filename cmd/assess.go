package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"flakemart/internal/pipeline"
	"flakemart/internal/ui"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Recompute segment and churn labels for all entities",
	Long: `Recomputes the segment assessment for every entity with a current
dimension row. Assessments are rebuilt from scratch each run from the full
transaction history; the previous run's rows for the asof date are replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asofFlag, _ := cmd.Flags().GetString("asof")
		transactionFile, _ := cmd.Flags().GetString("transactions")
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

		store, fileIssues, err := withTransactionFile(service, transactionFile)
		if err != nil {
			return err
		}

		runner, err := pipeline.NewRunner(store, cfg, logger)
		if err != nil {
			return err
		}

		assessments, issues, err := runner.Assess(cmd.Context(), asOf)
		if err != nil {
			return err
		}
		issues = append(fileIssues, issues...)

		churned := 0
		for _, a := range assessments {
			if a.Churned {
				churned++
			}
		}
		fmt.Printf("Assessed %d entities, %d churned\n", len(assessments), churned)
		for _, issue := range issues {
			ui.ShowWarning(fmt.Sprintf("[%s] %s", issue.Code, issue.Message))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().String("asof", "", "Assessment date (YYYY-MM-DD, default today)")
	assessCmd.Flags().String("transactions", "", "Read transactions from a CSV/JSON file instead of the fact table")
	assessCmd.Flags().Bool("dry-run", false, "Compute assessments but persist nothing")
}
