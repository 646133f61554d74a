package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flakemart/pkg/models"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("FLAKEMART_CONFIG", "")
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".flakemart"), GetConfigPath())
}

func TestGetConfigFile_EnvOverride(t *testing.T) {
	t.Setenv("FLAKEMART_CONFIG", "/tmp/flakemart/custom.yaml")
	assert.Equal(t, "/tmp/flakemart/custom.yaml", GetConfigFile())
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("FLAKEMART_CONFIG", "")

	testConfig := &models.Config{
		Snowflake: models.Snowflake{
			Account:   "test123.us-east-1",
			Username:  "testuser",
			Role:      "SYSADMIN",
			Warehouse: "TEST_WH",
			Database:  "TEST_DB",
			Schema:    "PUBLIC",
		},
		Dimension: models.Dimension{
			Table:        "DIM_CUSTOMER",
			TrackedAttrs: []string{"tier", "region"},
		},
	}

	require.NoError(t, Save(testConfig))
	assert.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, testConfig.Snowflake, loaded.Snowflake)
	assert.Equal(t, []string{"tier", "region"}, loaded.Dimension.TrackedAttrs)

	// Load fills in defaults for the sections the file left out.
	assert.Equal(t, models.DefaultWindows(), loaded.Segmentation.Windows)
	assert.Equal(t, "CUSTOMER_SEGMENTS", loaded.Segmentation.Table)
	assert.Equal(t, 500, loaded.Pipeline.BatchSize)
	assert.Equal(t, "info", loaded.Pipeline.LogLevel)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLAKEMART_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "DIM_CUSTOMER", cfg.Dimension.Table)
	assert.Equal(t, models.DefaultThresholds(), cfg.Segmentation.Thresholds)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &models.Config{}
	cfg.Segmentation.Windows = models.Windows{RecentDays: 30, PriorDays: 30, BaselineDays: 90}
	cfg.Pipeline.LogLevel = "debug"

	ApplyDefaults(cfg)

	assert.Equal(t, 30, cfg.Segmentation.Windows.RecentDays)
	assert.Equal(t, "debug", cfg.Pipeline.LogLevel)
	assert.Equal(t, "DIM_CUSTOMER", cfg.Dimension.Table)
}

func validConfig() *models.Config {
	cfg := &models.Config{
		Snowflake: models.Snowflake{
			Account:   "test123.us-east-1",
			Username:  "testuser",
			Role:      "SYSADMIN",
			Warehouse: "TEST_WH",
			Database:  "TEST_DB",
			Schema:    "PUBLIC",
		},
		Dimension: models.Dimension{
			TrackedAttrs: []string{"tier"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))

	tests := []struct {
		name   string
		mutate func(*models.Config)
	}{
		{"missing account", func(c *models.Config) { c.Snowflake.Account = "" }},
		{"missing warehouse", func(c *models.Config) { c.Snowflake.Warehouse = "" }},
		{"no tracked attributes", func(c *models.Config) { c.Dimension.TrackedAttrs = nil }},
		{"blank tracked attribute", func(c *models.Config) { c.Dimension.TrackedAttrs = []string{"tier", ""} }},
		{"duplicate tracked attribute", func(c *models.Config) { c.Dimension.TrackedAttrs = []string{"tier", "tier"} }},
		{"negative workers", func(c *models.Config) { c.Pipeline.Workers = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
