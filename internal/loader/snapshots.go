// Package loader reads snapshot and transaction batches from local CSV or
// JSON files, mirroring the staging tables the warehouse feeds the pipeline
// from. Per-record problems are collected as issues, never turned into a
// batch abort.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flakemart/internal/common"
	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// entityIDField is the reserved column naming the natural key.
const entityIDField = "entity_id"

// ReadSnapshots loads a snapshot batch from a .csv or .json file, chosen by
// extension.
func ReadSnapshots(path string) ([]models.Snapshot, []models.RecordIssue, error) {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid snapshot file path")
	}

	f, err := os.Open(cleaned) // #nosec G304 - path is validated
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to open snapshot file")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(cleaned)) {
	case ".csv":
		return readSnapshotCSV(f)
	case ".json":
		return readSnapshotJSON(f)
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Unsupported snapshot format %q, expected .csv or .json", filepath.Ext(cleaned)))
	}
}

// readSnapshotCSV expects a header row containing entity_id plus one column
// per attribute. An empty cell is NULL.
func readSnapshotCSV(r io.Reader) ([]models.Snapshot, []models.RecordIssue, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to read snapshot header")
	}

	idCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), entityIDField) {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "Snapshot file has no entity_id column")
	}

	var (
		snapshots []models.Snapshot
		issues    []models.RecordIssue
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			issues = append(issues, models.RecordIssue{
				Severity: models.IssueError,
				Code:     string(errors.ErrCodeInvalidInput),
				Message:  fmt.Sprintf("line %d: %v", line, err),
			})
			continue
		}

		snap := models.Snapshot{
			EntityID: strings.TrimSpace(record[idCol]),
			Attrs:    make(models.AttrMap, len(header)-1),
		}
		for i, name := range header {
			if i == idCol || i >= len(record) {
				continue
			}
			if record[i] == "" {
				snap.Attrs[strings.TrimSpace(name)] = nil
				continue
			}
			value := record[i]
			snap.Attrs[strings.TrimSpace(name)] = &value
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, issues, nil
}

// readSnapshotJSON expects an array of flat objects. The entity_id key is
// the natural key; every other key becomes an attribute. JSON null maps to
// NULL.
func readSnapshotJSON(r io.Reader) ([]models.Snapshot, []models.RecordIssue, error) {
	var raw []map[string]*string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to decode snapshot JSON")
	}

	snapshots := make([]models.Snapshot, 0, len(raw))
	for _, obj := range raw {
		snap := models.Snapshot{Attrs: make(models.AttrMap, len(obj))}
		for key, value := range obj {
			if strings.EqualFold(key, entityIDField) {
				if value != nil {
					snap.EntityID = *value
				}
				continue
			}
			snap.Attrs[key] = value
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil, nil
}
