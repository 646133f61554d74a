package warehouse

import (
	"fmt"

	"flakemart/pkg/errors"
)

// EnsureSchema creates the pipeline's tables when they do not exist yet.
// DDL is idempotent; running it on every deploy is safe.
func (s *Service) EnsureSchema() error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			SURROGATE_KEY VARCHAR(36) NOT NULL,
			ENTITY_ID VARCHAR NOT NULL,
			ATTRIBUTES VARCHAR NOT NULL,
			VALID_FROM DATE NOT NULL,
			VALID_TO DATE,
			IS_CURRENT BOOLEAN NOT NULL
		)`, s.table(s.config.DimensionTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ENTITY_ID VARCHAR NOT NULL,
			ATTRIBUTES VARCHAR NOT NULL
		)`, s.table(s.config.SnapshotTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ENTITY_ID VARCHAR NOT NULL,
			AMOUNT DOUBLE NOT NULL,
			TS TIMESTAMP_NTZ NOT NULL,
			CATEGORY VARCHAR NOT NULL
		)`, s.table(s.config.TransactionTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ENTITY_ID VARCHAR NOT NULL,
			ASOF_DATE DATE NOT NULL,
			RECENT_SPEND DOUBLE NOT NULL,
			PRIOR_SPEND DOUBLE NOT NULL,
			BASELINE_SPEND DOUBLE NOT NULL,
			SPEND_CHANGE_PCT DOUBLE NOT NULL,
			CATEGORY_MIX VARCHAR NOT NULL,
			HAS_TRANSACTIONS BOOLEAN NOT NULL,
			TENURE_DAYS INTEGER NOT NULL,
			RECENCY_DAYS INTEGER NOT NULL,
			SEGMENT VARCHAR NOT NULL,
			AT_RISK BOOLEAN NOT NULL,
			CHURNED BOOLEAN NOT NULL,
			CHURN_REASON VARCHAR,
			CHURN_SCORE DOUBLE
		)`, s.table(s.config.AssessmentTable)),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.SQLError("Failed to ensure schema", stmt, err)
		}
	}
	return nil
}
