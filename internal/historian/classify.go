package historian

import (
	"sort"

	"flakemart/pkg/models"
)

// ChangeClass is the outcome of comparing a snapshot against an entity's
// current dimension row.
type ChangeClass int

const (
	// ClassNew means the entity has no current row yet.
	ClassNew ChangeClass = iota
	// ClassChanged means at least one tracked attribute differs, so a new
	// version must be opened.
	ClassChanged
	// ClassNoHistoryChange means tracked attributes match; at most the
	// Type-1 attributes need an in-place refresh.
	ClassNoHistoryChange
)

func (c ChangeClass) String() string {
	switch c {
	case ClassNew:
		return "NEW"
	case ClassChanged:
		return "CHANGED"
	case ClassNoHistoryChange:
		return "NO_HISTORY_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// Classify compares a snapshot to the entity's current row. It is a pure
// function of (current row, snapshot, tracked set): batches can therefore be
// applied in any order across entities. current may be nil for unseen
// entities. Comparison is null-safe, NULL equals NULL.
func Classify(current *models.DimensionRow, snap models.Snapshot, tracked map[string]bool) ChangeClass {
	if current == nil {
		return ClassNew
	}
	for attr := range tracked {
		if !current.Attrs.EqualAt(snap.Attrs, attr) {
			return ClassChanged
		}
	}
	return ClassNoHistoryChange
}

// typeOneDiff returns the non-tracked attributes whose snapshot value
// differs from the current row, or nil when none do.
func typeOneDiff(current *models.DimensionRow, snap models.Snapshot, tracked map[string]bool) models.AttrMap {
	var diff models.AttrMap
	for attr := range snap.Attrs {
		if tracked[attr] {
			continue
		}
		if !current.Attrs.EqualAt(snap.Attrs, attr) {
			if diff == nil {
				diff = make(models.AttrMap)
			}
			diff[attr] = snap.Attrs[attr]
		}
	}
	return diff
}

// changedAttrs lists every attribute whose snapshot value differs from the
// current row, sorted for stable reporting.
func changedAttrs(current *models.DimensionRow, snap models.Snapshot) []string {
	var changed []string
	for attr := range snap.Attrs {
		if !current.Attrs.EqualAt(snap.Attrs, attr) {
			changed = append(changed, attr)
		}
	}
	sort.Strings(changed)
	return changed
}

// trackedSet builds the lookup set once per batch.
func trackedSet(attrs []string) map[string]bool {
	set := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		set[a] = true
	}
	return set
}
