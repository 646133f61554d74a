package pipeline

import (
	"time"

	"flakemart/internal/historian"
	"flakemart/pkg/models"
)

// Report is the consolidated outcome of a run: counts, the segment
// distribution, and every per-record issue collected along the way. Upstream
// tooling decides what to do with the issues; the run itself has already
// succeeded for every other record.
type Report struct {
	AsOfDate time.Time
	Duration time.Duration

	// Dimension stage.
	Created   int
	Changed   int
	Unchanged int
	Skipped   int

	// Assessment stage.
	Assessed     int
	Churned      int
	AtRisk       int
	Distribution map[models.Segment]int

	Issues []models.RecordIssue
}

func buildReport(asOf time.Time, batch *historian.BatchResult, assessments []models.Assessment, orphans []models.RecordIssue) *Report {
	report := &Report{
		AsOfDate:     historian.DateOnly(asOf),
		Created:      batch.Created,
		Changed:      batch.Changed,
		Unchanged:    batch.Unchanged,
		Skipped:      batch.Skipped,
		Assessed:     len(assessments),
		Distribution: make(map[models.Segment]int),
	}

	for _, a := range assessments {
		report.Distribution[a.Segment]++
		if a.Churned {
			report.Churned++
		}
		if a.AtRisk {
			report.AtRisk++
		}
	}

	report.Issues = append(report.Issues, batch.Issues...)
	report.Issues = append(report.Issues, orphans...)
	return report
}

// HasErrors reports whether any collected issue is an error rather than a
// warning.
func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == models.IssueError {
			return true
		}
	}
	return false
}
