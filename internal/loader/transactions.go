package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"flakemart/internal/common"
	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// Accepted timestamp layouts for transaction files, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadTransactions loads transaction events from a .csv or .json file.
// Records that fail to parse are reported as issues and skipped.
func ReadTransactions(path string) ([]models.Transaction, []models.RecordIssue, error) {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid transaction file path")
	}

	f, err := os.Open(cleaned) // #nosec G304 - path is validated
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to open transaction file")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(cleaned)) {
	case ".csv":
		return readTransactionCSV(f)
	case ".json":
		return readTransactionJSON(f)
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Unsupported transaction format %q, expected .csv or .json", filepath.Ext(cleaned)))
	}
}

// readTransactionCSV expects columns entity_id, amount, timestamp, category
// in a header row, any order.
func readTransactionCSV(r io.Reader) ([]models.Transaction, []models.RecordIssue, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to read transaction header")
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"entity_id", "amount", "timestamp", "category"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("Transaction file is missing the %s column", required))
		}
	}

	var (
		transactions []models.Transaction
		issues       []models.RecordIssue
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			issues = append(issues, recordIssue(line, err))
			continue
		}

		amount, err := strconv.ParseFloat(record[cols["amount"]], 64)
		if err != nil {
			issues = append(issues, recordIssue(line, fmt.Errorf("bad amount %q", record[cols["amount"]])))
			continue
		}
		ts, err := parseTimestamp(record[cols["timestamp"]])
		if err != nil {
			issues = append(issues, recordIssue(line, err))
			continue
		}

		transactions = append(transactions, models.Transaction{
			EntityID:  strings.TrimSpace(record[cols["entity_id"]]),
			Amount:    amount,
			Timestamp: ts,
			Category:  strings.TrimSpace(record[cols["category"]]),
		})
	}
	return transactions, issues, nil
}

type transactionJSON struct {
	EntityID  string  `json:"entity_id"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
	Category  string  `json:"category"`
}

func readTransactionJSON(r io.Reader) ([]models.Transaction, []models.RecordIssue, error) {
	var raw []transactionJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to decode transaction JSON")
	}

	var (
		transactions []models.Transaction
		issues       []models.RecordIssue
	)
	for i, rec := range raw {
		ts, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			issues = append(issues, recordIssue(i, err))
			continue
		}
		transactions = append(transactions, models.Transaction{
			EntityID:  rec.EntityID,
			Amount:    rec.Amount,
			Timestamp: ts,
			Category:  rec.Category,
		})
	}
	return transactions, issues, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func recordIssue(line int, err error) models.RecordIssue {
	return models.RecordIssue{
		Severity: models.IssueError,
		Code:     string(errors.ErrCodeInvalidInput),
		Message:  fmt.Sprintf("record %d: %v", line, err),
	}
}
