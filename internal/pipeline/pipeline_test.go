package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flakemart/internal/historian"
	"flakemart/pkg/models"
)

// memoryStore is an in-memory Store that applies historian batches the way
// the warehouse would, so a full run can be exercised without a database.
type memoryStore struct {
	mu           sync.Mutex
	rows         []models.DimensionRow
	snapshots    []models.Snapshot
	transactions []models.Transaction

	savedBatches     int
	savedAssessments []models.Assessment
	savedAsOf        time.Time
	failSave         bool
}

func (m *memoryStore) LoadCurrentRows() (map[string]models.DimensionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := make(map[string]models.DimensionRow)
	for _, row := range m.rows {
		if row.IsCurrent {
			current[row.EntityID] = row
		}
	}
	return current, nil
}

func (m *memoryStore) LoadSnapshots() ([]models.Snapshot, error) {
	return m.snapshots, nil
}

func (m *memoryStore) LoadTransactions(asOf time.Time) ([]models.Transaction, error) {
	return m.transactions, nil
}

func (m *memoryStore) SaveBatch(result *historian.BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return fmt.Errorf("warehouse unavailable")
	}
	for _, e := range result.Expirations {
		for i := range m.rows {
			if m.rows[i].SurrogateKey == e.SurrogateKey {
				to := e.ValidTo
				m.rows[i].ValidTo = &to
				m.rows[i].IsCurrent = false
			}
		}
	}
	for _, u := range result.TypeOneUpdates {
		for i := range m.rows {
			if m.rows[i].SurrogateKey == u.SurrogateKey {
				m.rows[i].Attrs = u.Attrs
			}
		}
	}
	m.rows = append(m.rows, result.NewRows...)
	m.savedBatches++
	return nil
}

func (m *memoryStore) SaveAssessments(asOf time.Time, assessments []models.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedAsOf = asOf
	m.savedAssessments = assessments
	return nil
}

func testConfig() *models.Config {
	return &models.Config{
		Dimension: models.Dimension{
			Table:        "DIM_CUSTOMER",
			TrackedAttrs: []string{"tier"},
		},
		Segmentation: models.Segmentation{
			Table:      "CUSTOMER_SEGMENTS",
			Windows:    models.DefaultWindows(),
			Thresholds: models.DefaultThresholds(),
		},
		Pipeline: models.Pipeline{Workers: 4},
	}
}

func newTestRunner(t *testing.T, store *memoryStore, cfg *models.Config) *Runner {
	t.Helper()
	runner, err := NewRunner(store, cfg, zap.NewNop())
	require.NoError(t, err)
	return runner
}

func snapshotOf(entityID, tier string) models.Snapshot {
	return models.Snapshot{
		EntityID: entityID,
		Attrs:    models.AttrMap{"tier": models.StringVal(tier)},
	}
}

var runAsOf = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func TestNewRunner_RejectsBadThresholds(t *testing.T) {
	cfg := testConfig()
	cfg.Segmentation.Thresholds.InactivityDays = -1

	_, err := NewRunner(&memoryStore{}, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestRun_EndToEnd(t *testing.T) {
	store := &memoryStore{
		transactions: []models.Transaction{
			{EntityID: "C001", Amount: 3000, Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Category: "Travel"},
			{EntityID: "C001", Amount: 2000, Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Category: "Groceries"},
			{EntityID: "GHOST", Amount: 10, Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Category: "Dining"},
		},
	}
	runner := newTestRunner(t, store, testConfig())

	report, err := runner.Run(context.Background(),
		[]models.Snapshot{snapshotOf("C001", "GOLD"), snapshotOf("C002", "SILVER")}, runAsOf)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.Assessed)
	assert.Equal(t, 1, store.savedBatches)
	require.Len(t, store.savedAssessments, 2)

	// Output is ordered by entity id regardless of worker scheduling.
	assert.Equal(t, "C001", store.savedAssessments[0].EntityID)
	assert.Equal(t, "C002", store.savedAssessments[1].EntityID)
	assert.Equal(t, models.SegmentHighValue, store.savedAssessments[0].Segment)

	// C002 has a dimension row but no transactions at all.
	assert.True(t, store.savedAssessments[1].Churned)
	assert.Equal(t, 1, report.Distribution[models.SegmentHighValue])

	// The orphan transaction surfaces as a warning, not a failure.
	require.Len(t, report.Issues, 1)
	assert.Equal(t, models.IssueWarning, report.Issues[0].Severity)
	assert.Equal(t, "GHOST", report.Issues[0].EntityID)
	assert.False(t, report.HasErrors())
}

func TestRun_SecondRunVersionsChangedEntity(t *testing.T) {
	store := &memoryStore{}
	runner := newTestRunner(t, store, testConfig())

	_, err := runner.Run(context.Background(), []models.Snapshot{snapshotOf("C001", "SILVER")}, runAsOf)
	require.NoError(t, err)

	later := runAsOf.AddDate(0, 1, 0)
	report, err := runner.Run(context.Background(), []models.Snapshot{snapshotOf("C001", "GOLD")}, later)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Changed)
	require.Len(t, store.rows, 2)
	assert.NoError(t, historian.ValidateHistory(store.rows))
}

func TestHistorize_DryRunSkipsPersistence(t *testing.T) {
	store := &memoryStore{failSave: true}
	cfg := testConfig()
	cfg.Pipeline.DryRun = true
	runner := newTestRunner(t, store, cfg)

	result, err := runner.Historize(context.Background(), []models.Snapshot{snapshotOf("C001", "GOLD")}, runAsOf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Zero(t, store.savedBatches)
}

func TestHistorize_PropagatesStorageFailure(t *testing.T) {
	store := &memoryStore{failSave: true}
	runner := newTestRunner(t, store, testConfig())

	_, err := runner.Historize(context.Background(), []models.Snapshot{snapshotOf("C001", "GOLD")}, runAsOf)
	assert.Error(t, err)
}

func TestAssess_ManyEntitiesDeterministic(t *testing.T) {
	store := &memoryStore{}
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("C%03d", i)
		store.rows = append(store.rows, models.DimensionRow{
			SurrogateKey: "sk-" + id,
			EntityID:     id,
			Attrs:        models.AttrMap{"tier": models.StringVal("GOLD")},
			ValidFrom:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			IsCurrent:    true,
		})
		store.transactions = append(store.transactions, models.Transaction{
			EntityID:  id,
			Amount:    float64(100 + i),
			Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Category:  "Groceries",
		})
	}
	runner := newTestRunner(t, store, testConfig())

	first, _, err := runner.Assess(context.Background(), runAsOf)
	require.NoError(t, err)
	second, _, err := runner.Assess(context.Background(), runAsOf)
	require.NoError(t, err)

	require.Len(t, first, 50)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].EntityID, first[i].EntityID)
	}
}

func TestGroupTransactions_CountsOrphans(t *testing.T) {
	current := map[string]models.DimensionRow{"C001": {EntityID: "C001"}}
	transactions := []models.Transaction{
		{EntityID: "C001", Amount: 10},
		{EntityID: "GHOST", Amount: 5},
		{EntityID: "GHOST", Amount: 7},
	}

	byEntity, issues := groupTransactions(transactions, current)

	assert.Len(t, byEntity["C001"], 1)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "2 transactions")
	assert.Equal(t, "GHOST", issues[0].EntityID)
}
