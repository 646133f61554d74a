// Package segment computes per-entity rolling-window aggregates and assigns
// each entity a segment and churn label. Assessments are recomputed from
// scratch every run; nothing is carried over between runs.
package segment

import (
	"context"
	"time"

	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// Scorer is the contract with an external model serving endpoint: a feature
// vector in, a probability out. The engine works without one; when present
// its score is attached to the assessment but never overrides the rule-based
// labels.
type Scorer interface {
	Score(ctx context.Context, features map[string]float64) (float64, error)
}

// Engine holds validated configuration for one assessment run. Construct it
// once per run via NewEngine; construction fails on malformed thresholds so
// a misconfigured classifier can never label a single row.
type Engine struct {
	windows    models.Windows
	thresholds models.Thresholds
	highValue  map[string]bool
	necessity  map[string]bool
	scorer     Scorer
}

// NewEngine validates the window and threshold configuration and returns a
// ready engine.
func NewEngine(windows models.Windows, thresholds models.Thresholds) (*Engine, error) {
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}

	return &Engine{
		windows:    windows,
		thresholds: thresholds,
		highValue:  categorySet(thresholds.HighValueCategories),
		necessity:  categorySet(thresholds.NecessityCategories),
	}, nil
}

// WithScorer attaches an external model scorer.
func (e *Engine) WithScorer(s Scorer) *Engine {
	e.scorer = s
	return e
}

// Assess computes a fresh assessment for one entity from all of its
// transactions up to asOf. The result is deterministic: same inputs, same
// output, regardless of transaction ordering. attrs are the entity's current
// dimension attributes; they only feed the external scorer's feature vector,
// the rule set is purely transactional.
func (e *Engine) Assess(ctx context.Context, entityID string, transactions []models.Transaction, attrs models.AttrMap, asOf time.Time) models.Assessment {
	agg := aggregate(transactions, asOf, e.windows)

	assessment := models.Assessment{
		EntityID:        entityID,
		AsOfDate:        dateOnly(asOf),
		RecentSpend:     agg.RecentSpend,
		PriorSpend:      agg.PriorSpend,
		BaselineSpend:   agg.BaselineScaled,
		SpendChangePct:  agg.SpendChangePct,
		CategoryMix:     agg.CategoryMix,
		HasTransactions: agg.HasTransactions,
		TenureDays:      agg.TenureDays,
		RecencyDays:     agg.RecencyDays,
	}

	e.classify(&assessment, agg)
	e.labelChurn(&assessment, agg)
	e.score(ctx, &assessment, attrs, agg)

	return assessment
}

func (e *Engine) score(ctx context.Context, a *models.Assessment, attrs models.AttrMap, agg aggregates) {
	if e.scorer == nil {
		return
	}
	features := map[string]float64{
		"recent_spend":     agg.RecentSpend,
		"prior_spend":      agg.PriorSpend,
		"baseline_spend":   agg.BaselineScaled,
		"spend_change_pct": agg.SpendChangePct,
		"tenure_days":      float64(agg.TenureDays),
		"recency_days":     float64(agg.RecencyDays),
		"txn_count":        float64(agg.RecentCount),
	}
	for name := range attrs {
		// Dimension attributes enter the vector as presence flags; the
		// serving side owns any richer encoding.
		if attrs[name] != nil {
			features["attr_"+name] = 1
		}
	}
	if score, err := e.scorer.Score(ctx, features); err == nil {
		a.ChurnScore = &score
	}
}

func validateWindows(w models.Windows) error {
	switch {
	case w.RecentDays <= 0:
		return errors.ThresholdError("windows.recent_days", "must be positive")
	case w.PriorDays <= 0:
		return errors.ThresholdError("windows.prior_days", "must be positive")
	case w.BaselineDays <= 0:
		return errors.ThresholdError("windows.baseline_days", "must be positive")
	}
	return nil
}

func validateThresholds(t models.Thresholds) error {
	switch {
	case t.HighValueMonthly <= 0:
		return errors.ThresholdError("high_value_monthly", "must be positive")
	case t.HighValueCategoryPct < 0 || t.HighValueCategoryPct > 100:
		return errors.ThresholdError("high_value_category_pct", "must be within [0,100]")
	case len(t.HighValueCategories) == 0:
		return errors.ThresholdError("high_value_categories", "must name at least one category")
	case t.DeclinePct > 0:
		return errors.ThresholdError("decline_pct", "must be zero or negative")
	case t.DeclineMinPriorSpend < 0:
		return errors.ThresholdError("decline_min_prior_spend", "must not be negative")
	case t.NewTenureMaxDays <= 0:
		return errors.ThresholdError("new_tenure_max_days", "must be positive")
	case t.GrowthPct < 0:
		return errors.ThresholdError("growth_pct", "must not be negative")
	case t.BudgetMonthlyMax <= 0:
		return errors.ThresholdError("budget_monthly_max", "must be positive")
	case t.BudgetNecessityPct < 0 || t.BudgetNecessityPct > 100:
		return errors.ThresholdError("budget_necessity_pct", "must be within [0,100]")
	case len(t.NecessityCategories) == 0:
		return errors.ThresholdError("necessity_categories", "must name at least one category")
	case t.InactivityDays <= 0:
		return errors.ThresholdError("inactivity_days", "must be positive")
	case t.ChurnSpendFloorPct <= 0 || t.ChurnSpendFloorPct >= 1:
		return errors.ThresholdError("churn_spend_floor_pct", "must be within (0,1)")
	}
	return nil
}

func categorySet(categories []string) map[string]bool {
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return set
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
