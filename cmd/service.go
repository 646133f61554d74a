package cmd

import (
	"time"

	"flakemart/internal/config"
	"flakemart/internal/loader"
	"flakemart/internal/pipeline"
	"flakemart/internal/ui"
	"flakemart/internal/warehouse"
	"flakemart/pkg/models"
)

// loadConfig loads and validates the configuration shared by all run
// commands.
func loadConfig() (*models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildService resolves credentials and constructs a connected warehouse
// service from the configuration.
func buildService(cfg *models.Config) (*warehouse.Service, error) {
	password, err := config.ResolvePassword(cfg)
	if err != nil {
		return nil, err
	}

	timeout := 30 * time.Second
	if cfg.Snowflake.Timeout != "" {
		if parsed, err := time.ParseDuration(cfg.Snowflake.Timeout); err == nil {
			timeout = parsed
		}
	}

	service := warehouse.NewService(warehouse.Config{
		Account:         cfg.Snowflake.Account,
		Username:        cfg.Snowflake.Username,
		Password:        password,
		Database:        cfg.Snowflake.Database,
		Schema:          cfg.Snowflake.Schema,
		Warehouse:       cfg.Snowflake.Warehouse,
		Role:            cfg.Snowflake.Role,
		Timeout:         timeout,
		DimensionTable:  cfg.Dimension.Table,
		AssessmentTable: cfg.Segmentation.Table,
	})

	spinner := ui.NewSpinner("Connecting to Snowflake")
	spinner.Start()
	if err := service.Connect(); err != nil {
		spinner.Stop(false, "Connection failed")
		return nil, err
	}
	spinner.Stop(true, "Connected to "+cfg.Snowflake.Account)
	return service, nil
}

// parseAsOf interprets the --asof flag, defaulting to today.
func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}

// fileTransactionStore serves transactions from a local file instead of the
// fact table, delegating everything else to the wrapped store. Used for
// file-fed runs and warehouse-less dry runs.
type fileTransactionStore struct {
	pipeline.Store
	transactions []models.Transaction
}

func (s fileTransactionStore) LoadTransactions(asOf time.Time) ([]models.Transaction, error) {
	return s.transactions, nil
}

// withTransactionFile wraps the store when --transactions was given, loading
// the file once up front. Per-record parse problems come back as issues so
// the caller can fold them into the run report.
func withTransactionFile(store pipeline.Store, path string) (pipeline.Store, []models.RecordIssue, error) {
	if path == "" {
		return store, nil, nil
	}
	transactions, issues, err := loader.ReadTransactions(path)
	if err != nil {
		return nil, nil, err
	}
	return fileTransactionStore{Store: store, transactions: transactions}, issues, nil
}
