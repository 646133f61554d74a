package historian

import (
	"fmt"
	"sort"
	"time"

	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// ValidateHistory checks the per-entity invariants over a full version
// history: exactly one current open row per entity, and contiguous,
// non-overlapping validity ranges with the closed row's valid_to exactly one
// day before its successor's valid_from. Used by the audit command and the
// test suite.
func ValidateHistory(rows []models.DimensionRow) error {
	byEntity := make(map[string][]models.DimensionRow)
	for _, row := range rows {
		byEntity[row.EntityID] = append(byEntity[row.EntityID], row)
	}

	for entityID, versions := range byEntity {
		if err := validateEntity(entityID, versions); err != nil {
			return err
		}
	}
	return nil
}

func validateEntity(entityID string, versions []models.DimensionRow) error {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].ValidFrom.Before(versions[j].ValidFrom)
	})

	currentCount := 0
	for _, v := range versions {
		open := v.ValidTo == nil
		if v.IsCurrent != open {
			return invariantErr(entityID, fmt.Sprintf(
				"row %s has is_current=%v but valid_to nil=%v", v.SurrogateKey, v.IsCurrent, open))
		}
		if open {
			currentCount++
		}
	}
	if currentCount != 1 {
		return invariantErr(entityID, fmt.Sprintf("expected exactly one current row, found %d", currentCount))
	}

	if versions[len(versions)-1].ValidTo != nil {
		return invariantErr(entityID, "the latest version is not the open one")
	}

	for i := 0; i < len(versions)-1; i++ {
		v := versions[i]
		next := versions[i+1]
		if v.ValidTo == nil {
			return invariantErr(entityID, fmt.Sprintf("non-latest row %s is open", v.SurrogateKey))
		}
		want := DateOnly(next.ValidFrom).AddDate(0, 0, -1)
		if !DateOnly(*v.ValidTo).Equal(want) {
			return invariantErr(entityID, fmt.Sprintf(
				"gap or overlap between versions: valid_to %s, next valid_from %s",
				v.ValidTo.Format(dateFormat), next.ValidFrom.Format(dateFormat)))
		}
		if DateOnly(v.ValidFrom).After(DateOnly(*v.ValidTo)) {
			return invariantErr(entityID, fmt.Sprintf(
				"row %s has empty validity range", v.SurrogateKey))
		}
	}

	return nil
}

func invariantErr(entityID, detail string) error {
	return errors.New(errors.ErrCodeInvariantBroken,
		fmt.Sprintf("dimension invariant broken for %s: %s", entityID, detail)).
		WithContext("entity_id", entityID)
}

const dateFormat = "2006-01-02"

// LatestValidFrom returns the newest valid_from across an entity's rows,
// zero time when the slice is empty.
func LatestValidFrom(rows []models.DimensionRow) time.Time {
	var latest time.Time
	for _, r := range rows {
		if r.ValidFrom.After(latest) {
			latest = r.ValidFrom
		}
	}
	return latest
}
