package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"flakemart/internal/historian"
	"flakemart/internal/ui"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify the dimension's history invariants",
	Long: `Loads the full version history and checks the structural invariants:
exactly one open current row per entity, and contiguous, non-overlapping
validity ranges between consecutive versions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		service, err := buildService(cfg)
		if err != nil {
			return err
		}
		defer service.Close()

		history, err := service.LoadHistory()
		if err != nil {
			return err
		}

		if err := historian.ValidateHistory(history); err != nil {
			ui.ShowError(err)
			return err
		}

		entities := make(map[string]bool)
		for _, row := range history {
			entities[row.EntityID] = true
		}
		ui.ShowSuccess(fmt.Sprintf("history is consistent: %d rows across %d entities", len(history), len(entities)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
