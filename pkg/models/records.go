package models

import (
	"time"
)

// AttrMap holds named attribute values for an entity. A nil value represents
// SQL NULL, which is distinct from an absent key.
type AttrMap map[string]*string

// Clone returns a shallow copy of the map (pointer values are shared, but
// values are never mutated after ingestion).
func (a AttrMap) Clone() AttrMap {
	out := make(AttrMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns the value for key, nil when the key is absent or NULL.
func (a AttrMap) Get(key string) *string {
	return a[key]
}

// EqualAt reports whether two maps hold the same value for key. The
// comparison is null-safe: NULL equals NULL, and an absent key is treated
// as NULL.
func (a AttrMap) EqualAt(b AttrMap, key string) bool {
	av, bv := a[key], b[key]
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	return *av == *bv
}

// StringVal is a convenience for building attribute values inline.
func StringVal(s string) *string {
	return &s
}

// Snapshot is one periodic observation of a mutable entity. Immutable once
// ingested.
type Snapshot struct {
	EntityID string
	Attrs    AttrMap
}

// DimensionRow is one version of an entity in the dimension table. Exactly
// one row per entity is current (open-ended ValidTo) at any time.
type DimensionRow struct {
	SurrogateKey string
	EntityID     string
	Attrs        AttrMap
	ValidFrom    time.Time  // effective date of this version
	ValidTo      *time.Time // nil while the version is current
	IsCurrent    bool
}

// Transaction is an immutable fact keyed to an entity.
type Transaction struct {
	EntityID  string
	Amount    float64
	Timestamp time.Time
	Category  string
}

// Segment is the single most actionable label for an entity.
type Segment string

const (
	SegmentHighValue Segment = "HIGH_VALUE"
	SegmentDeclining Segment = "DECLINING"
	SegmentNewGrowth Segment = "NEW_GROWTH"
	SegmentBudget    Segment = "BUDGET_CONSCIOUS"
	SegmentStable    Segment = "STABLE"
)

// Assessment is the fully recomputed per-run output for one entity. It is
// not versioned: each run's row supersedes the previous run's.
type Assessment struct {
	EntityID string
	AsOfDate time.Time

	RecentSpend    float64
	PriorSpend     float64
	BaselineSpend  float64 // baseline-window spend scaled to the recent window length
	SpendChangePct float64 // -100.0 when recent spend is zero, +100.0 when only prior is zero
	CategoryMix    map[string]float64

	HasTransactions bool
	TenureDays      int // days since first transaction; 0 when none
	RecencyDays     int // days since last transaction; meaningless when HasTransactions is false

	Segment     Segment
	AtRisk      bool
	Churned     bool
	ChurnReason string

	// ChurnScore is the optional probability from an external model
	// serving endpoint. Nil when no scorer is configured.
	ChurnScore *float64
}

// IssueSeverity distinguishes skipped-record errors from advisory warnings.
type IssueSeverity string

const (
	IssueError   IssueSeverity = "ERROR"
	IssueWarning IssueSeverity = "WARNING"
)

// RecordIssue is a per-record problem collected during a run. One bad record
// never aborts a batch; the caller receives the full list alongside the
// produced output.
type RecordIssue struct {
	Severity IssueSeverity
	EntityID string
	Code     string
	Message  string
}
