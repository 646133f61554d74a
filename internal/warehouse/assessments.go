package warehouse

import (
	"encoding/json"
	"fmt"
	"time"

	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// SaveAssessments replaces the assessment rows for one asof date. Each run
// fully supersedes the previous output for that date: delete then insert,
// in one transaction.
func (s *Service) SaveAssessments(asOf time.Time, assessments []models.Assessment) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE ASOF_DATE = ?", s.table(s.config.AssessmentTable))
	if _, err := tx.ExecContext(ctx, del, asOf); err != nil {
		tx.Rollback()
		return errors.SQLError("Failed to clear prior assessments", del, err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (ENTITY_ID, ASOF_DATE, RECENT_SPEND, PRIOR_SPEND, BASELINE_SPEND, SPEND_CHANGE_PCT, CATEGORY_MIX, HAS_TRANSACTIONS, TENURE_DAYS, RECENCY_DAYS, SEGMENT, AT_RISK, CHURNED, CHURN_REASON, CHURN_SCORE) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table(s.config.AssessmentTable))

	for _, a := range assessments {
		mix, err := json.Marshal(a.CategoryMix)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, errors.ErrCodeInternal, "Failed to marshal category mix")
		}
		var score interface{}
		if a.ChurnScore != nil {
			score = *a.ChurnScore
		}
		if _, err := tx.ExecContext(ctx, insert,
			a.EntityID, a.AsOfDate, a.RecentSpend, a.PriorSpend, a.BaselineSpend,
			a.SpendChangePct, string(mix), a.HasTransactions, a.TenureDays,
			a.RecencyDays, string(a.Segment), a.AtRisk, a.Churned, a.ChurnReason, score,
		); err != nil {
			tx.Rollback()
			return errors.SQLError("Failed to insert assessment", insert, err).
				WithContext("entity_id", a.EntityID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit assessments")
	}
	return nil
}
