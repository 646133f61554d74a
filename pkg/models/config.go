package models

type Config struct {
	Snowflake    Snowflake    `yaml:"snowflake"`
	Dimension    Dimension    `yaml:"dimension"`
	Segmentation Segmentation `yaml:"segmentation"`
	Pipeline     Pipeline     `yaml:"pipeline"`
}

type Snowflake struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Timeout   string `yaml:"timeout"` // e.g. "30s"
}

// Dimension configures the customer dimension maintained by the historian.
type Dimension struct {
	Table        string   `yaml:"table"`         // versioned dimension table
	TrackedAttrs []string `yaml:"tracked_attrs"` // Type-2 attributes; everything else is overwritten in place
}

// Segmentation configures the rolling-window assessment run.
type Segmentation struct {
	Table      string     `yaml:"table"` // assessment output table
	Windows    Windows    `yaml:"windows"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// Windows defines the trailing aggregation windows in days. All windows are
// half-open intervals ending at (and excluding) the day after asof_date, so
// a transaction is never counted in two windows.
type Windows struct {
	RecentDays   int `yaml:"recent_days"`   // recent window, default 90
	PriorDays    int `yaml:"prior_days"`    // prior window immediately before recent, default 90
	BaselineDays int `yaml:"baseline_days"` // baseline lookback before recent, default 270
}

// Thresholds holds the named numeric constants driving segment and churn
// classification. All of them are validated at startup; a misconfigured
// classifier must not silently produce wrong labels.
type Thresholds struct {
	HighValueMonthly     float64  `yaml:"high_value_monthly"`      // min spend per 30 days for HIGH_VALUE
	HighValueCategoryPct float64  `yaml:"high_value_category_pct"` // min share of spend in high-value categories
	HighValueCategories  []string `yaml:"high_value_categories"`
	DeclinePct           float64  `yaml:"decline_pct"`             // spend change pct at or below which DECLINING triggers (negative)
	DeclineMinPriorSpend float64  `yaml:"decline_min_prior_spend"` // guards near-zero spenders from being flagged as declining
	NewTenureMaxDays     int      `yaml:"new_tenure_max_days"`     // max tenure in days for NEW_GROWTH
	GrowthPct            float64  `yaml:"growth_pct"`              // min spend change pct for NEW_GROWTH
	BudgetMonthlyMax     float64  `yaml:"budget_monthly_max"`      // max spend per 30 days for BUDGET_CONSCIOUS
	BudgetNecessityPct   float64  `yaml:"budget_necessity_pct"`    // min share of spend in necessity categories
	NecessityCategories  []string `yaml:"necessity_categories"`
	InactivityDays       int      `yaml:"inactivity_days"`       // recency beyond which an entity is churned
	ChurnSpendFloorPct   float64  `yaml:"churn_spend_floor_pct"` // recent spend below this fraction of baseline spend means churned
}

// Pipeline contains run-level settings.
type Pipeline struct {
	Workers   int    `yaml:"workers"`    // parallel assessment workers, 0 = NumCPU
	BatchSize int    `yaml:"batch_size"` // rows per insert batch
	DryRun    bool   `yaml:"dry_run"`    // compute but do not persist
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
}

// DefaultWindows returns the standard 90/90 day windows with a 270 day
// baseline lookback.
func DefaultWindows() Windows {
	return Windows{
		RecentDays:   90,
		PriorDays:    90,
		BaselineDays: 270,
	}
}

// DefaultThresholds returns the reference threshold set used by the demo
// warehouse. Callers normally override these from config.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValueMonthly:     1500,
		HighValueCategoryPct: 40,
		HighValueCategories:  []string{"Travel", "Dining"},
		DeclinePct:           -30,
		DeclineMinPriorSpend: 500,
		NewTenureMaxDays:     180,
		GrowthPct:            20,
		BudgetMonthlyMax:     600,
		BudgetNecessityPct:   50,
		NecessityCategories:  []string{"Groceries", "Utilities", "Gas"},
		InactivityDays:       60,
		ChurnSpendFloorPct:   0.25,
	}
}
