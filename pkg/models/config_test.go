package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWindows(t *testing.T) {
	w := DefaultWindows()

	assert.Equal(t, 90, w.RecentDays)
	assert.Equal(t, 90, w.PriorDays)
	assert.Equal(t, 270, w.BaselineDays)
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()

	assert.InDelta(t, 1500, th.HighValueMonthly, 0.001)
	assert.InDelta(t, -30, th.DeclinePct, 0.001)
	assert.Equal(t, 60, th.InactivityDays)
	assert.InDelta(t, 0.25, th.ChurnSpendFloorPct, 0.001)
	assert.Contains(t, th.HighValueCategories, "Travel")
	assert.Contains(t, th.NecessityCategories, "Groceries")
}
