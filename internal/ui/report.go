package ui

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"flakemart/internal/pipeline"
	"flakemart/pkg/models"
)

// RenderReport writes the run outcome as terminal tables: dimension stage
// counts, the segment distribution, and any collected record issues.
func RenderReport(w io.Writer, report *pipeline.Report) {
	fmt.Fprintf(w, "\nRun for %s completed in %s\n\n",
		report.AsOfDate.Format("2006-01-02"), report.Duration.Round(time.Millisecond))

	stage := tablewriter.NewWriter(w)
	stage.SetHeader([]string{"Stage", "Metric", "Count"})
	stage.SetBorder(false)
	stage.SetAutoWrapText(false)
	stage.SetAlignment(tablewriter.ALIGN_LEFT)
	stage.Append([]string{"dimension", "new entities", itoa(report.Created)})
	stage.Append([]string{"dimension", "changed", itoa(report.Changed)})
	stage.Append([]string{"dimension", "unchanged", itoa(report.Unchanged)})
	stage.Append([]string{"dimension", "skipped", itoa(report.Skipped)})
	stage.Append([]string{"assessment", "assessed", itoa(report.Assessed)})
	stage.Append([]string{"assessment", "churned", itoa(report.Churned)})
	stage.Append([]string{"assessment", "at risk", itoa(report.AtRisk)})
	stage.Render()

	if len(report.Distribution) > 0 {
		fmt.Fprintln(w)
		renderDistribution(w, report.Distribution, report.Assessed)
	}

	if len(report.Issues) > 0 {
		fmt.Fprintln(w)
		renderIssues(w, report.Issues)
	}
}

func renderDistribution(w io.Writer, distribution map[models.Segment]int, total int) {
	segments := make([]models.Segment, 0, len(distribution))
	for s := range distribution {
		segments = append(segments, s)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i] < segments[j] })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Segment", "Entities", "Share"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, s := range segments {
		count := distribution[s]
		share := "-"
		if total > 0 {
			share = fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
		}
		table.Append([]string{string(s), itoa(count), share})
	}
	table.Render()
}

func renderIssues(w io.Writer, issues []models.RecordIssue) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Severity", "Entity", "Code", "Message"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, issue := range issues {
		severity := string(issue.Severity)
		if supportsColor {
			switch issue.Severity {
			case models.IssueError:
				severity = color.RedString(severity)
			case models.IssueWarning:
				severity = color.YellowString(severity)
			}
		}
		table.Append([]string{severity, issue.EntityID, issue.Code, issue.Message})
	}
	table.Render()
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
