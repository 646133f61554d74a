package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "flakemart",
	Short: "Maintain a versioned customer dimension and segment assessments in Snowflake",
	Long: "FlakeMart - A batch pipeline that tracks customer attribute history " +
		"(SCD Type 2) and recomputes rolling-window segmentation and churn labels per run",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.flakemart/config.yaml)")

	// Accept snake_case spellings for every flag.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func initConfig() {
	if cfgFile != "" {
		os.Setenv("FLAKEMART_CONFIG", cfgFile)
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.flakemart")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is okay for now
	}
}
