// Package pipeline orchestrates one batch run: load inputs at the batch
// boundary, apply the historian, assess every entity, persist outputs, and
// hand the caller a report of what happened. Core logic stays in historian
// and segment; this package only wires them to storage.
package pipeline

import (
	"context"
	stderrors "errors"
	"sort"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"flakemart/internal/historian"
	"flakemart/internal/segment"
	"flakemart/pkg/errors"
	"flakemart/pkg/models"
)

// Store is the storage collaborator contract. The warehouse service
// implements it; tests use an in-memory stand-in.
type Store interface {
	LoadCurrentRows() (map[string]models.DimensionRow, error)
	LoadSnapshots() ([]models.Snapshot, error)
	LoadTransactions(asOf time.Time) ([]models.Transaction, error)
	SaveBatch(result *historian.BatchResult) error
	SaveAssessments(asOf time.Time, assessments []models.Assessment) error
}

// Runner executes pipeline stages against a Store.
type Runner struct {
	store   Store
	engine  *segment.Engine
	cfg     *models.Config
	logger  *zap.Logger
	workers int
}

// NewRunner builds a runner. Engine construction validates windows and
// thresholds, so a misconfigured run fails here, before any data moves.
func NewRunner(store Store, cfg *models.Config, logger *zap.Logger) (*Runner, error) {
	engine, err := segment.NewEngine(cfg.Segmentation.Windows, cfg.Segmentation.Thresholds)
	if err != nil {
		return nil, err
	}
	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{
		store:   store,
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		workers: workers,
	}, nil
}

const defaultWorkers = 8

// WithScorer attaches an external model scorer to the assessment stage.
func (r *Runner) WithScorer(s segment.Scorer) *Runner {
	r.engine.WithScorer(s)
	return r
}

// Historize applies one snapshot batch against the dimension and persists
// the resulting row mutations. Returns the batch result including
// per-record issues; the error is reserved for storage failures.
func (r *Runner) Historize(ctx context.Context, snapshots []models.Snapshot, asOf time.Time) (*historian.BatchResult, error) {
	currentRows, err := r.store.LoadCurrentRows()
	if err != nil {
		return nil, err
	}

	result := historian.ApplySnapshotBatch(currentRows, snapshots, r.cfg.Dimension.TrackedAttrs, asOf)

	r.logger.Info("snapshot batch classified",
		zap.Int("snapshots", len(snapshots)),
		zap.Int("created", result.Created),
		zap.Int("changed", result.Changed),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
	)

	if r.cfg.Pipeline.DryRun {
		r.logger.Info("dry run, dimension mutations not persisted")
		return result, nil
	}
	if err := r.store.SaveBatch(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Assess recomputes the assessment for every entity with a current
// dimension row. Entities are independent, so the work fans out over a
// bounded worker pool; output ordering is fixed by entity id afterwards so
// runs stay reproducible.
func (r *Runner) Assess(ctx context.Context, asOf time.Time) ([]models.Assessment, []models.RecordIssue, error) {
	currentRows, err := r.store.LoadCurrentRows()
	if err != nil {
		return nil, nil, err
	}
	transactions, err := r.store.LoadTransactions(asOf)
	if err != nil {
		return nil, nil, err
	}

	byEntity, issues := groupTransactions(transactions, currentRows)

	entityIDs := make([]string, 0, len(currentRows))
	for id := range currentRows {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)

	assessments := make([]models.Assessment, len(entityIDs))
	pool := pond.NewPool(r.workers)
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, id := range entityIDs {
		i, id := i, id
		group.Submit(func() {
			attrs := currentRows[id].Attrs
			assessments[i] = r.engine.Assess(groupCtx, id, byEntity[id], attrs, asOf)
		})
	}

	if err := group.Wait(); err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, pond.ErrGroupStopped) {
		r.logger.Warn("assessment pool reported an error", zap.Error(err))
	}
	pool.StopAndWait()

	r.logger.Info("entities assessed",
		zap.Int("entities", len(entityIDs)),
		zap.Int("orphan_transactions", len(issues)),
	)

	if r.cfg.Pipeline.DryRun {
		r.logger.Info("dry run, assessments not persisted")
		return assessments, issues, nil
	}
	if err := r.store.SaveAssessments(historian.DateOnly(asOf), assessments); err != nil {
		return nil, nil, err
	}
	return assessments, issues, nil
}

// Run executes both stages and returns a consolidated report.
func (r *Runner) Run(ctx context.Context, snapshots []models.Snapshot, asOf time.Time) (*Report, error) {
	started := time.Now()

	batch, err := r.Historize(ctx, snapshots, asOf)
	if err != nil {
		return nil, err
	}

	assessments, orphans, err := r.Assess(ctx, asOf)
	if err != nil {
		return nil, err
	}

	report := buildReport(asOf, batch, assessments, orphans)
	report.Duration = time.Since(started)

	r.logger.Info("run complete",
		zap.String("asof", historian.DateOnly(asOf).Format("2006-01-02")),
		zap.Int("assessed", len(assessments)),
		zap.Int("issues", len(report.Issues)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// groupTransactions buckets events per entity. A transaction referencing an
// entity with no dimension row has nothing to aggregate into: it is
// excluded and reported as a warning, never a failure.
func groupTransactions(transactions []models.Transaction, currentRows map[string]models.DimensionRow) (map[string][]models.Transaction, []models.RecordIssue) {
	byEntity := make(map[string][]models.Transaction, len(currentRows))
	var issues []models.RecordIssue
	orphans := make(map[string]int)

	for _, txn := range transactions {
		if _, known := currentRows[txn.EntityID]; !known {
			orphans[txn.EntityID]++
			continue
		}
		byEntity[txn.EntityID] = append(byEntity[txn.EntityID], txn)
	}

	orphanIDs := make([]string, 0, len(orphans))
	for id := range orphans {
		orphanIDs = append(orphanIDs, id)
	}
	sort.Strings(orphanIDs)
	for _, id := range orphanIDs {
		issues = append(issues, models.RecordIssue{
			Severity: models.IssueWarning,
			EntityID: id,
			Code:     string(errors.ErrCodeOrphanTransaction),
			Message:  orphanMessage(id, orphans[id]),
		})
	}
	return byEntity, issues
}

func orphanMessage(entityID string, count int) string {
	if count == 1 {
		return "1 transaction references unknown entity " + entityID
	}
	return strconv.Itoa(count) + " transactions reference unknown entity " + entityID
}
