package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"flakemart/internal/config"
	"flakemart/internal/ui"
	"flakemart/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively create the FlakeMart configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.ShowHeader("FlakeMart Setup")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		questions := []*survey.Question{
			{
				Name:     "account",
				Prompt:   &survey.Input{Message: "Snowflake account:", Default: cfg.Snowflake.Account},
				Validate: survey.Required,
			},
			{
				Name:     "username",
				Prompt:   &survey.Input{Message: "Username:", Default: cfg.Snowflake.Username},
				Validate: survey.Required,
			},
			{
				Name:     "role",
				Prompt:   &survey.Input{Message: "Role:", Default: defaultString(cfg.Snowflake.Role, "SYSADMIN")},
				Validate: survey.Required,
			},
			{
				Name:     "warehouse",
				Prompt:   &survey.Input{Message: "Warehouse:", Default: cfg.Snowflake.Warehouse},
				Validate: survey.Required,
			},
			{
				Name:     "database",
				Prompt:   &survey.Input{Message: "Database:", Default: cfg.Snowflake.Database},
				Validate: survey.Required,
			},
			{
				Name:     "schema",
				Prompt:   &survey.Input{Message: "Schema:", Default: defaultString(cfg.Snowflake.Schema, "PUBLIC")},
				Validate: survey.Required,
			},
		}

		answers := struct {
			Account   string
			Username  string
			Role      string
			Warehouse string
			Database  string
			Schema    string
		}{}
		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}

		var password string
		if err := survey.AskOne(&survey.Password{Message: "Password (stored in the OS keyring):"}, &password, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := config.StorePassword(answers.Username, password); err != nil {
			ui.ShowWarning(fmt.Sprintf("could not store the password in the keyring: %v", err))
			ui.ShowWarning("set FLAKEMART_SNOWFLAKE_PASSWORD instead")
		}

		var tracked string
		if err := survey.AskOne(&survey.Input{
			Message: "Tracked (Type 2) attributes, comma separated:",
			Default: strings.Join(cfg.Dimension.TrackedAttrs, ","),
			Help:    "Changes to these attributes open a new version; all other attributes are overwritten in place",
		}, &tracked, survey.WithValidator(survey.Required)); err != nil {
			return err
		}

		cfg.Snowflake = models.Snowflake{
			Account:   answers.Account,
			Username:  answers.Username,
			Role:      answers.Role,
			Warehouse: answers.Warehouse,
			Database:  answers.Database,
			Schema:    answers.Schema,
			Timeout:   cfg.Snowflake.Timeout,
		}
		cfg.Dimension.TrackedAttrs = splitAttrs(tracked)
		config.ApplyDefaults(cfg)

		if err := config.Save(cfg); err != nil {
			return err
		}

		ui.ShowSuccess("configuration written to " + config.GetConfigFile())
		ui.ShowInfo("run 'flakemart validate --connect' to verify the connection")
		return nil
	},
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func splitAttrs(raw string) []string {
	parts := strings.Split(raw, ",")
	attrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			attrs = append(attrs, trimmed)
		}
	}
	return attrs
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
