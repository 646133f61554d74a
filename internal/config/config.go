package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"flakemart/internal/common"
	"flakemart/pkg/models"
)

func GetConfigPath() string {
	// Check for environment variable first
	if configPath := os.Getenv("FLAKEMART_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".flakemart")
}

func GetConfigFile() string {
	// Check for environment variable first
	if configFile := os.Getenv("FLAKEMART_CONFIG"); configFile != "" {
		// Validate the path to prevent directory traversal
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			// Fall back to default if invalid
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

func Load() (*models.Config, error) {
	configFile := GetConfigFile()

	cleanedPath, err := common.CleanPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		cfg := &models.Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&config)
	return &config, nil
}

func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, common.DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := GetConfigFile()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// ApplyDefaults fills unset sections so a sparse config file still yields a
// runnable configuration. Explicit values are never overwritten.
func ApplyDefaults(cfg *models.Config) {
	if cfg.Dimension.Table == "" {
		cfg.Dimension.Table = "DIM_CUSTOMER"
	}
	if cfg.Segmentation.Table == "" {
		cfg.Segmentation.Table = "CUSTOMER_SEGMENTS"
	}
	if cfg.Segmentation.Windows == (models.Windows{}) {
		cfg.Segmentation.Windows = models.DefaultWindows()
	}
	zero := models.Thresholds{}
	if cfg.Segmentation.Thresholds.InactivityDays == zero.InactivityDays &&
		cfg.Segmentation.Thresholds.HighValueMonthly == zero.HighValueMonthly {
		cfg.Segmentation.Thresholds = models.DefaultThresholds()
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 500
	}
	if cfg.Pipeline.LogLevel == "" {
		cfg.Pipeline.LogLevel = "info"
	}
}
