package segment

import (
	"time"

	"flakemart/pkg/models"
)

// Sentinel values for SpendChangePct when the prior window has no spend to
// divide by. The dropout sentinel doubles as the exact formula result for
// any recent-zero case, so downstream consumers see one value for "spend
// went to nothing".
const (
	// SentinelDropout marks zero recent spend: total dropout.
	SentinelDropout = -100.0
	// SentinelNewSpend marks spend appearing where the prior window had
	// none, so growth rules can still fire for young entities.
	SentinelNewSpend = 100.0
)

// aggregates holds the rolling-window numbers for one entity. All windows
// are half-open [start, end) over day boundaries; end for the recent window
// is the day after asOf, so transactions on the assessment date itself are
// counted exactly once.
type aggregates struct {
	RecentSpend    float64
	PriorSpend     float64
	BaselineSpend  float64 // raw spend inside the baseline window
	BaselineScaled float64 // baseline spend normalized to the recent window length
	SpendChangePct float64
	CategoryMix    map[string]float64 // pct of recent spend per category
	RecentCount    int

	HasTransactions bool
	TenureDays      int
	RecencyDays     int
}

func aggregate(transactions []models.Transaction, asOf time.Time, windows models.Windows) aggregates {
	recentEnd := dateOnly(asOf).AddDate(0, 0, 1)
	recentStart := recentEnd.AddDate(0, 0, -windows.RecentDays)
	priorStart := recentStart.AddDate(0, 0, -windows.PriorDays)
	baselineStart := recentStart.AddDate(0, 0, -windows.BaselineDays)

	agg := aggregates{CategoryMix: map[string]float64{}}
	recentByCategory := make(map[string]float64)

	var first, last time.Time
	for _, txn := range transactions {
		ts := txn.Timestamp.UTC()
		if ts.Compare(recentEnd) >= 0 {
			// Future-dated rows are outside this run's scope.
			continue
		}

		if !agg.HasTransactions || ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
		agg.HasTransactions = true

		switch {
		case ts.Compare(recentStart) >= 0:
			agg.RecentSpend += txn.Amount
			agg.RecentCount++
			recentByCategory[txn.Category] += txn.Amount
		case ts.Compare(priorStart) >= 0:
			agg.PriorSpend += txn.Amount
		}
		if ts.Compare(baselineStart) >= 0 && ts.Before(recentStart) {
			agg.BaselineSpend += txn.Amount
		}
	}

	if agg.HasTransactions {
		asOfDay := dateOnly(asOf)
		agg.TenureDays = daysBetween(dateOnly(first), asOfDay)
		agg.RecencyDays = daysBetween(dateOnly(last), asOfDay)
	}

	agg.BaselineScaled = agg.BaselineSpend / float64(windows.BaselineDays) * float64(windows.RecentDays)
	agg.SpendChangePct = spendChangePct(agg.RecentSpend, agg.PriorSpend)

	if agg.RecentSpend > 0 {
		for category, spend := range recentByCategory {
			agg.CategoryMix[category] = spend / agg.RecentSpend * 100
		}
	}

	return agg
}

// spendChangePct returns the percentage change from prior to recent spend.
// Division by zero is never left to float semantics: zero recent spend is
// the dropout sentinel, spend appearing from a zero prior window is the
// new-spend sentinel.
func spendChangePct(recent, prior float64) float64 {
	if recent == 0 {
		return SentinelDropout
	}
	if prior == 0 {
		return SentinelNewSpend
	}
	return (recent - prior) / prior * 100
}

// shareOf sums the mix percentage held by a category set.
func shareOf(mix map[string]float64, set map[string]bool) float64 {
	var share float64
	for category, pct := range mix {
		if set[category] {
			share += pct
		}
	}
	return share
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
