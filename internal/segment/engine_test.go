package segment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flakemart/pkg/models"
)

var asOf = time.Date(2024, 6, 30, 14, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(models.DefaultWindows(), models.DefaultThresholds())
	require.NoError(t, err)
	return engine
}

func txn(date string, amount float64, category string) models.Transaction {
	ts, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.Transaction{EntityID: "C001", Amount: amount, Timestamp: ts, Category: category}
}

func TestAssess_HighValue(t *testing.T) {
	engine := newTestEngine(t)

	// 5000 over the recent window is a 1666/month rate, 60% of it in Travel.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-05-01", 3000, "Travel"),
		txn("2024-06-01", 2000, "Groceries"),
	}, nil, asOf)

	assert.Equal(t, models.SegmentHighValue, a.Segment)
	assert.False(t, a.AtRisk)
	assert.False(t, a.Churned)
	assert.InDelta(t, 5000, a.RecentSpend, 0.001)
	assert.InDelta(t, 60, a.CategoryMix["Travel"], 0.001)
}

func TestAssess_DecliningIsAtRisk(t *testing.T) {
	engine := newTestEngine(t)

	// Prior 1000, recent 600: a 40% drop above the minimum prior spend.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-02-15", 1000, "Dining"),
		txn("2024-05-15", 600, "Dining"),
	}, nil, asOf)

	assert.Equal(t, models.SegmentDeclining, a.Segment)
	assert.True(t, a.AtRisk)
	assert.InDelta(t, -40, a.SpendChangePct, 0.001)
	assert.False(t, a.Churned)
}

func TestAssess_NewGrowthViaNewSpendSentinel(t *testing.T) {
	engine := newTestEngine(t)

	// First transaction 60 days ago, nothing in the prior window: the
	// new-spend sentinel counts as growth for a young entity.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-05-01", 800, "Dining"),
	}, nil, asOf)

	assert.Equal(t, models.SegmentNewGrowth, a.Segment)
	assert.InDelta(t, SentinelNewSpend, a.SpendChangePct, 0.001)
	assert.Equal(t, 60, a.TenureDays)
}

func TestAssess_BudgetConscious(t *testing.T) {
	engine := newTestEngine(t)

	// Long-tenured, low monthly rate, everything in necessity categories.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2023-12-01", 500, "Groceries"),
		txn("2024-02-01", 950, "Groceries"),
		txn("2024-05-10", 900, "Groceries"),
	}, nil, asOf)

	assert.Equal(t, models.SegmentBudget, a.Segment)
	assert.False(t, a.Churned)
}

func TestAssess_Stable(t *testing.T) {
	engine := newTestEngine(t)

	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2023-09-01", 1800, "Dining"),
		txn("2024-02-01", 1900, "Dining"),
		txn("2024-05-01", 1000, "Dining"),
		txn("2024-06-01", 1000, "Groceries"),
	}, nil, asOf)

	assert.Equal(t, models.SegmentStable, a.Segment)
	assert.False(t, a.AtRisk)
	assert.False(t, a.Churned)
}

func TestAssess_InactivityChurn(t *testing.T) {
	engine := newTestEngine(t)

	// Last transaction 121 days before asof: inactive, and with zero recent
	// spend the formula bottoms out at the dropout sentinel.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-03-01", 1000, "Dining"),
	}, nil, asOf)

	assert.True(t, a.Churned)
	assert.Contains(t, a.ChurnReason, ChurnReasonInactivity)
	assert.InDelta(t, SentinelDropout, a.SpendChangePct, 0.001)
	assert.Equal(t, 121, a.RecencyDays)
	assert.Equal(t, models.SegmentDeclining, a.Segment)
	assert.True(t, a.AtRisk)
}

func TestAssess_SpendFloorChurn(t *testing.T) {
	engine := newTestEngine(t)

	// Active yesterday, but recent spend collapsed far below the entity's
	// own baseline rate.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2023-10-01", 3000, "Electronics"),
		txn("2024-06-29", 50, "Electronics"),
	}, nil, asOf)

	assert.True(t, a.Churned)
	assert.Equal(t, ChurnReasonSpendFloor, a.ChurnReason)
	assert.Equal(t, 1, a.RecencyDays)
}

func TestAssess_NeverTransacted(t *testing.T) {
	engine := newTestEngine(t)

	a := engine.Assess(context.Background(), "C001", nil, nil, asOf)

	assert.False(t, a.HasTransactions)
	assert.True(t, a.Churned)
	assert.Equal(t, ChurnReasonNever, a.ChurnReason)
	assert.Equal(t, models.SegmentStable, a.Segment)
	assert.Zero(t, a.TenureDays)
}

func TestAssess_WindowBoundaries(t *testing.T) {
	engine := newTestEngine(t)

	// With asof 2024-06-30 and a 90 day window, the recent window is
	// [2024-04-02, 2024-07-01): the asof day itself is inside, the window
	// start day is inside, the day before it belongs to the prior window,
	// and future-dated rows are ignored.
	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-06-30", 100, "Dining"),
		txn("2024-04-02", 10, "Dining"),
		txn("2024-04-01", 1000, "Dining"),
		txn("2024-07-01", 9999, "Dining"),
	}, nil, asOf)

	assert.InDelta(t, 110, a.RecentSpend, 0.001)
	assert.InDelta(t, 1000, a.PriorSpend, 0.001)
}

func TestAssess_OrderIndependent(t *testing.T) {
	engine := newTestEngine(t)

	transactions := []models.Transaction{
		txn("2024-02-15", 1000, "Dining"),
		txn("2024-05-15", 600, "Dining"),
		txn("2023-11-01", 300, "Groceries"),
	}
	reversed := []models.Transaction{transactions[2], transactions[1], transactions[0]}

	forward := engine.Assess(context.Background(), "C001", transactions, nil, asOf)
	backward := engine.Assess(context.Background(), "C001", reversed, nil, asOf)

	assert.Equal(t, forward, backward)
}

func TestSpendChangePct(t *testing.T) {
	assert.InDelta(t, SentinelDropout, spendChangePct(0, 500), 0.001)
	assert.InDelta(t, SentinelDropout, spendChangePct(0, 0), 0.001)
	assert.InDelta(t, SentinelNewSpend, spendChangePct(250, 0), 0.001)
	assert.InDelta(t, -50, spendChangePct(500, 1000), 0.001)
	assert.InDelta(t, 25, spendChangePct(1250, 1000), 0.001)
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Windows, *models.Thresholds)
	}{
		{"zero recent window", func(w *models.Windows, _ *models.Thresholds) { w.RecentDays = 0 }},
		{"negative baseline window", func(w *models.Windows, _ *models.Thresholds) { w.BaselineDays = -90 }},
		{"positive decline pct", func(_ *models.Windows, th *models.Thresholds) { th.DeclinePct = 30 }},
		{"no high value categories", func(_ *models.Windows, th *models.Thresholds) { th.HighValueCategories = nil }},
		{"spend floor at one", func(_ *models.Windows, th *models.Thresholds) { th.ChurnSpendFloorPct = 1 }},
		{"spend floor above one", func(_ *models.Windows, th *models.Thresholds) { th.ChurnSpendFloorPct = 1.5 }},
		{"zero inactivity days", func(_ *models.Windows, th *models.Thresholds) { th.InactivityDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := models.DefaultWindows()
			thresholds := models.DefaultThresholds()
			tt.mutate(&windows, &thresholds)

			_, err := NewEngine(windows, thresholds)
			assert.Error(t, err)
		})
	}
}

type stubScorer struct {
	score float64
	err   error
}

func (s stubScorer) Score(_ context.Context, _ map[string]float64) (float64, error) {
	return s.score, s.err
}

func TestAssess_ScorerAttachesScore(t *testing.T) {
	engine := newTestEngine(t).WithScorer(stubScorer{score: 0.42})

	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-05-15", 600, "Dining"),
	}, models.AttrMap{"tier": models.StringVal("GOLD")}, asOf)

	require.NotNil(t, a.ChurnScore)
	assert.InDelta(t, 0.42, *a.ChurnScore, 0.001)
}

func TestAssess_ScorerFailureLeavesLabelsIntact(t *testing.T) {
	engine := newTestEngine(t).WithScorer(stubScorer{err: errors.New("endpoint down")})

	a := engine.Assess(context.Background(), "C001", []models.Transaction{
		txn("2024-02-15", 1000, "Dining"),
		txn("2024-05-15", 600, "Dining"),
	}, nil, asOf)

	assert.Nil(t, a.ChurnScore)
	assert.Equal(t, models.SegmentDeclining, a.Segment)
}
