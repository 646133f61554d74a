package cmd

import (
	"github.com/spf13/cobra"

	"flakemart/internal/config"
	"flakemart/internal/segment"
	"flakemart/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without running anything",
	Long: `Checks the connection settings, the tracked attribute set, and the
segmentation windows and thresholds. With --connect it also pings the
warehouse. Threshold problems are fatal: a misconfigured classifier
must never label a row.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		connect, _ := cmd.Flags().GetBool("connect")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if err := config.Validate(cfg); err != nil {
			ui.ShowError(err)
			return err
		}

		if _, err := segment.NewEngine(cfg.Segmentation.Windows, cfg.Segmentation.Thresholds); err != nil {
			ui.ShowError(err)
			return err
		}

		if connect {
			service, err := buildService(cfg)
			if err != nil {
				ui.ShowError(err)
				return err
			}
			defer service.Close()
			if err := service.TestConnection(); err != nil {
				ui.ShowError(err)
				return err
			}
			ui.ShowSuccess("warehouse connection OK")
		}

		ui.ShowSuccess("configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("connect", false, "Also test the warehouse connection")
}
