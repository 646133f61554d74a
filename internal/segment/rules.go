package segment

import (
	"strings"

	"flakemart/pkg/models"
)

// Churn reasons surfaced on the assessment row.
const (
	ChurnReasonNever      = "never_transacted"
	ChurnReasonInactivity = "inactive"
	ChurnReasonSpendFloor = "below_spend_floor"
)

// daysPerMonth converts window spend into the monthly rate the thresholds
// are expressed in.
const daysPerMonth = 30.0

// classify assigns the single most actionable segment. The rules are
// ordered and the first match wins: an entity can satisfy several numeric
// thresholds at once, and the priority order is part of the business
// contract, not an implementation choice.
func (e *Engine) classify(a *models.Assessment, agg aggregates) {
	monthlyRate := agg.RecentSpend / float64(e.windows.RecentDays) * daysPerMonth

	switch {
	case monthlyRate >= e.thresholds.HighValueMonthly &&
		shareOf(agg.CategoryMix, e.highValue) >= e.thresholds.HighValueCategoryPct:
		a.Segment = models.SegmentHighValue

	case agg.SpendChangePct <= e.thresholds.DeclinePct &&
		agg.PriorSpend >= e.thresholds.DeclineMinPriorSpend:
		a.Segment = models.SegmentDeclining
		a.AtRisk = true

	case agg.HasTransactions &&
		agg.TenureDays <= e.thresholds.NewTenureMaxDays &&
		agg.SpendChangePct >= e.thresholds.GrowthPct:
		a.Segment = models.SegmentNewGrowth

	case monthlyRate < e.thresholds.BudgetMonthlyMax &&
		shareOf(agg.CategoryMix, e.necessity) >= e.thresholds.BudgetNecessityPct:
		a.Segment = models.SegmentBudget

	default:
		a.Segment = models.SegmentStable
	}
}

// labelChurn sets the churn flag independently of the segment. The two
// triggers are OR'd, either alone is sufficient: prolonged inactivity, or
// recent spend collapsing below a fraction of the entity's own baseline.
// An entity that has never transacted is maximally stale and churns via the
// inactivity trigger as an explicit branch.
func (e *Engine) labelChurn(a *models.Assessment, agg aggregates) {
	var reasons []string

	if !agg.HasTransactions {
		a.Churned = true
		a.ChurnReason = ChurnReasonNever
		return
	}

	if agg.RecencyDays > e.thresholds.InactivityDays {
		reasons = append(reasons, ChurnReasonInactivity)
	}
	if agg.BaselineScaled > 0 && agg.RecentSpend < e.thresholds.ChurnSpendFloorPct*agg.BaselineScaled {
		reasons = append(reasons, ChurnReasonSpendFloor)
	}

	if len(reasons) > 0 {
		a.Churned = true
		a.ChurnReason = strings.Join(reasons, ",")
	}
}
