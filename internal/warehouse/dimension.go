package warehouse

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"flakemart/internal/historian"
	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// LoadCurrentRows returns the current (open) dimension row per entity.
// Historical rows are never loaded for a batch apply; the historian only
// needs current state.
func (s *Service) LoadCurrentRows() (map[string]models.DimensionRow, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	query := fmt.Sprintf(
		"SELECT SURROGATE_KEY, ENTITY_ID, ATTRIBUTES, VALID_FROM, VALID_TO, IS_CURRENT FROM %s WHERE IS_CURRENT = TRUE",
		s.table(s.config.DimensionTable))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SQLError("Failed to load current dimension rows", query, err)
	}
	defer rows.Close()

	current := make(map[string]models.DimensionRow)
	for rows.Next() {
		row, err := scanDimensionRow(rows)
		if err != nil {
			return nil, err
		}
		current[row.EntityID] = row
	}
	return current, rows.Err()
}

// LoadHistory returns the full version history, used by the audit command.
func (s *Service) LoadHistory() ([]models.DimensionRow, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	query := fmt.Sprintf(
		"SELECT SURROGATE_KEY, ENTITY_ID, ATTRIBUTES, VALID_FROM, VALID_TO, IS_CURRENT FROM %s ORDER BY ENTITY_ID, VALID_FROM",
		s.table(s.config.DimensionTable))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SQLError("Failed to load dimension history", query, err)
	}
	defer rows.Close()

	var history []models.DimensionRow
	for rows.Next() {
		row, err := scanDimensionRow(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, row)
	}
	return history, rows.Err()
}

// SaveBatch persists one historian batch inside a single transaction:
// expirations first, then new versions, then in-place updates. A failure
// rolls the whole batch back so the dimension never ends up half-applied.
func (s *Service) SaveBatch(result *historian.BatchResult) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database")
	}

	ctx, cancel := s.getContext()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	expire := fmt.Sprintf(
		"UPDATE %s SET VALID_TO = ?, IS_CURRENT = FALSE WHERE SURROGATE_KEY = ?",
		s.table(s.config.DimensionTable))
	for _, e := range result.Expirations {
		if _, err := tx.ExecContext(ctx, expire, e.ValidTo, e.SurrogateKey); err != nil {
			tx.Rollback()
			return errors.SQLError("Failed to expire dimension row", expire, err).
				WithContext("entity_id", e.EntityID)
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (SURROGATE_KEY, ENTITY_ID, ATTRIBUTES, VALID_FROM, VALID_TO, IS_CURRENT) VALUES (?, ?, ?, ?, NULL, TRUE)",
		s.table(s.config.DimensionTable))
	for _, row := range result.NewRows {
		attrs, err := marshalAttrs(row.Attrs)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, row.SurrogateKey, row.EntityID, attrs, row.ValidFrom); err != nil {
			tx.Rollback()
			return errors.SQLError("Failed to insert dimension row", insert, err).
				WithContext("entity_id", row.EntityID)
		}
	}

	update := fmt.Sprintf(
		"UPDATE %s SET ATTRIBUTES = ? WHERE SURROGATE_KEY = ?",
		s.table(s.config.DimensionTable))
	for _, u := range result.TypeOneUpdates {
		attrs, err := marshalAttrs(u.Attrs)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, update, attrs, u.SurrogateKey); err != nil {
			tx.Rollback()
			return errors.SQLError("Failed to update dimension row", update, err).
				WithContext("entity_id", u.EntityID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit dimension batch")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDimensionRow(rows rowScanner) (models.DimensionRow, error) {
	var (
		row       models.DimensionRow
		attrsJSON string
		validTo   sql.NullTime
	)
	if err := rows.Scan(&row.SurrogateKey, &row.EntityID, &attrsJSON, &row.ValidFrom, &validTo, &row.IsCurrent); err != nil {
		return models.DimensionRow{}, errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to scan dimension row")
	}
	if validTo.Valid {
		t := validTo.Time
		row.ValidTo = &t
	}
	attrs, err := unmarshalAttrs(attrsJSON)
	if err != nil {
		return models.DimensionRow{}, err
	}
	row.Attrs = attrs
	return row, nil
}

// Attribute maps are stored as a JSON document in a single column, which
// keeps the dimension schema independent of the tracked attribute set.

func marshalAttrs(attrs models.AttrMap) (string, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "Failed to marshal attributes")
	}
	return string(data), nil
}

func unmarshalAttrs(data string) (models.AttrMap, error) {
	var attrs models.AttrMap
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to unmarshal attributes")
	}
	return attrs, nil
}
