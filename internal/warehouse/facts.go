package warehouse

import (
	"fmt"
	"time"

	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// LoadSnapshots reads the staging snapshot table for a run. Snapshots with
// an empty entity id are loaded as-is; the historian rejects them per
// record so the rejection shows up in the run report.
func (s *Service) LoadSnapshots() ([]models.Snapshot, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	query := fmt.Sprintf("SELECT ENTITY_ID, ATTRIBUTES FROM %s", s.table(s.config.SnapshotTable))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SQLError("Failed to load staged snapshots", query, err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		var (
			snap      models.Snapshot
			attrsJSON string
		)
		if err := rows.Scan(&snap.EntityID, &attrsJSON); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to scan snapshot row")
		}
		attrs, err := unmarshalAttrs(attrsJSON)
		if err != nil {
			return nil, err
		}
		snap.Attrs = attrs
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// LoadTransactions returns every transaction with a timestamp at or before
// the end of the asof day. Aggregation is order independent, so no ORDER BY
// is requested.
func (s *Service) LoadTransactions(asOf time.Time) ([]models.Transaction, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	query := fmt.Sprintf(
		"SELECT ENTITY_ID, AMOUNT, TS, CATEGORY FROM %s WHERE TS < ?",
		s.table(s.config.TransactionTable))

	cutoff := asOf.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, errors.SQLError("Failed to load transactions", query, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		if err := rows.Scan(&txn.EntityID, &txn.Amount, &txn.Timestamp, &txn.Category); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to scan transaction row")
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}
