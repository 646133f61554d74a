package config

import (
	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// Validate checks the connection and dimension sections. Window and
// threshold validation lives with the segmentation engine, which refuses to
// construct on bad values; the validate command runs both.
func Validate(cfg *models.Config) error {
	if cfg.Snowflake.Account == "" {
		return errors.ConfigError("snowflake account is required", "snowflake.account")
	}
	if cfg.Snowflake.Username == "" {
		return errors.ConfigError("snowflake username is required", "snowflake.username")
	}
	if cfg.Snowflake.Warehouse == "" {
		return errors.ConfigError("snowflake warehouse is required", "snowflake.warehouse")
	}
	if cfg.Snowflake.Database == "" {
		return errors.ConfigError("snowflake database is required", "snowflake.database")
	}
	if cfg.Snowflake.Schema == "" {
		return errors.ConfigError("snowflake schema is required", "snowflake.schema")
	}
	if cfg.Dimension.Table == "" {
		return errors.ConfigError("dimension table is required", "dimension.table")
	}
	if len(cfg.Dimension.TrackedAttrs) == 0 {
		return errors.ConfigError("at least one tracked attribute is required", "dimension.tracked_attrs")
	}
	seen := make(map[string]bool, len(cfg.Dimension.TrackedAttrs))
	for _, attr := range cfg.Dimension.TrackedAttrs {
		if attr == "" {
			return errors.ConfigError("tracked attribute names must not be empty", "dimension.tracked_attrs")
		}
		if seen[attr] {
			return errors.ConfigError("duplicate tracked attribute: "+attr, "dimension.tracked_attrs")
		}
		seen[attr] = true
	}
	if cfg.Segmentation.Table == "" {
		return errors.ConfigError("segmentation table is required", "segmentation.table")
	}
	if cfg.Pipeline.Workers < 0 {
		return errors.ConfigError("workers must not be negative", "pipeline.workers")
	}
	return nil
}
