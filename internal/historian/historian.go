// Package historian maintains a Slowly Changing Dimension Type 2 history
// for a mutable entity. Attributes declared as tracked are versioned: a
// change closes the current row and opens a new one. All other attributes
// are overwritten in place, Type 1 style.
//
// The historian itself never touches storage. It takes the current rows and
// a snapshot batch, and emits the row mutations a storage layer should
// apply: inserts of new open versions, expirations of superseded versions,
// and in-place Type-1 updates.
package historian

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// Expiration closes a previously current row.
type Expiration struct {
	SurrogateKey string
	EntityID     string
	ValidTo      time.Time // asof date minus one day
}

// TypeOneUpdate refreshes attribute values on a current row without
// touching its validity range. Attrs is the full resulting attribute map so
// storage can write it wholesale; Changed names the attributes that
// actually differ.
type TypeOneUpdate struct {
	SurrogateKey string
	EntityID     string
	Attrs        models.AttrMap
	Changed      []string
}

// BatchResult is everything a storage layer needs to persist one run, plus
// the per-record issues collected along the way. A bad record never aborts
// the batch.
type BatchResult struct {
	NewRows        []models.DimensionRow
	Expirations    []Expiration
	TypeOneUpdates []TypeOneUpdate
	Issues         []models.RecordIssue

	// Counts by classification, for run reporting.
	Created   int
	Changed   int
	Unchanged int
	Skipped   int
}

// ApplySnapshotBatch applies one run's snapshots against the current
// dimension rows and returns the mutations to persist.
//
// Duplicate snapshots for the same entity within a batch follow a
// last-one-wins policy. asOf is truncated to a date; the day is the unit of
// validity. currentRows is keyed by entity id and holds only current rows,
// never historical ones.
func ApplySnapshotBatch(currentRows map[string]models.DimensionRow, snapshots []models.Snapshot, trackedAttrs []string, asOf time.Time) *BatchResult {
	result := &BatchResult{}
	tracked := trackedSet(trackedAttrs)
	asOf = DateOnly(asOf)

	for _, snap := range dedupeLastWins(snapshots, result) {
		applyOne(currentRows, snap, tracked, asOf, result)
	}

	return result
}

func applyOne(currentRows map[string]models.DimensionRow, snap models.Snapshot, tracked map[string]bool, asOf time.Time, result *BatchResult) {
	var current *models.DimensionRow
	if row, ok := currentRows[snap.EntityID]; ok {
		current = &row
	}

	if current != nil && asOf.Before(DateOnly(current.ValidFrom)) {
		err := errors.OutOfOrderError(snap.EntityID, asOf, current.ValidFrom)
		result.Issues = append(result.Issues, models.RecordIssue{
			Severity: models.IssueError,
			EntityID: snap.EntityID,
			Code:     string(errors.ErrCodeOutOfOrder),
			Message:  err.Message,
		})
		result.Skipped++
		return
	}

	switch Classify(current, snap, tracked) {
	case ClassNew:
		result.NewRows = append(result.NewRows, newVersion(snap, asOf))
		result.Created++

	case ClassChanged:
		if asOf.Equal(DateOnly(current.ValidFrom)) {
			// A tracked change on the version's own effective date is a
			// same-day correction: closing the row would produce an empty
			// validity range, so the open version is rewritten instead.
			result.TypeOneUpdates = append(result.TypeOneUpdates, TypeOneUpdate{
				SurrogateKey: current.SurrogateKey,
				EntityID:     snap.EntityID,
				Attrs:        snap.Attrs.Clone(),
				Changed:      changedAttrs(current, snap),
			})
			result.Changed++
			return
		}
		result.Expirations = append(result.Expirations, Expiration{
			SurrogateKey: current.SurrogateKey,
			EntityID:     snap.EntityID,
			ValidTo:      asOf.AddDate(0, 0, -1),
		})
		result.NewRows = append(result.NewRows, newVersion(snap, asOf))
		result.Changed++

	case ClassNoHistoryChange:
		diff := typeOneDiff(current, snap, tracked)
		if diff == nil {
			result.Unchanged++
			return
		}
		merged := current.Attrs.Clone()
		changed := make([]string, 0, len(diff))
		for attr, value := range diff {
			merged[attr] = value
			changed = append(changed, attr)
		}
		sort.Strings(changed)
		result.TypeOneUpdates = append(result.TypeOneUpdates, TypeOneUpdate{
			SurrogateKey: current.SurrogateKey,
			EntityID:     snap.EntityID,
			Attrs:        merged,
			Changed:      changed,
		})
		result.Changed++
	}
}

// newVersion builds a fresh open row. Surrogate keys are generated per
// version and never reused across versions of the same entity.
func newVersion(snap models.Snapshot, asOf time.Time) models.DimensionRow {
	return models.DimensionRow{
		SurrogateKey: uuid.NewString(),
		EntityID:     snap.EntityID,
		Attrs:        snap.Attrs.Clone(),
		ValidFrom:    asOf,
		ValidTo:      nil,
		IsCurrent:    true,
	}
}

// dedupeLastWins drops malformed snapshots and collapses duplicate entity
// ids, keeping the last occurrence. Last-one-wins is the documented policy
// for duplicates within a batch, not an accident of iteration order.
func dedupeLastWins(snapshots []models.Snapshot, result *BatchResult) []models.Snapshot {
	lastIndex := make(map[string]int, len(snapshots))
	order := make([]string, 0, len(snapshots))

	for i, snap := range snapshots {
		if snap.EntityID == "" {
			result.Issues = append(result.Issues, models.RecordIssue{
				Severity: models.IssueError,
				Code:     string(errors.ErrCodeMissingEntityID),
				Message:  "snapshot rejected: missing entity_id",
			})
			result.Skipped++
			continue
		}
		if _, seen := lastIndex[snap.EntityID]; !seen {
			order = append(order, snap.EntityID)
		}
		lastIndex[snap.EntityID] = i
	}

	out := make([]models.Snapshot, 0, len(order))
	for _, id := range order {
		out = append(out, snapshots[lastIndex[id]])
	}
	return out
}

// DateOnly truncates a timestamp to its UTC date. The historian's validity
// unit is the day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
