package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/pagefit/pkg/calibrate"
	"github.com/matzehuels/pagefit/pkg/layout"
)

var reportHeaders = []string{"Variant", "Result", "Pages", "Delta", "Scale", "Leading", "Top"}

// printReport renders the outcome of a calibration run.
func printReport(r *calibrate.Report, runErr error) {
	if r == nil {
		return
	}

	printNewline()
	switch r.Status {
	case calibrate.StatusConverged:
		printSuccess("Converged after %d iteration%s", r.Iterations, plural(r.Iterations))
	case calibrate.StatusDryRun:
		printInfo("Dry run: %d of %d variants pass", len(r.Passed()), len(r.Variants))
	case calibrate.StatusCanceled:
		printWarning("Canceled after %d iteration%s", r.Iterations, plural(r.Iterations))
	default:
		printError("Calibration failed after %d iteration%s", r.Iterations, plural(r.Iterations))
	}
	if r.Reason != "" && r.Status != calibrate.StatusConverged {
		printDetail("%s", r.Reason)
	}

	if len(r.Variants) > 0 {
		printNewline()
		fmt.Println(reportTable(r.Variants))
	}

	for _, v := range r.BoundFailed() {
		printNewline()
		printWarning("%s is pinned at density %s", v.ID, v.Bound.Limit)
		printDetail("%s", v.Bound.Reason)
		printDetail("%s", v.Bound.Remediation())
	}

	if runErr != nil && r.Status == calibrate.StatusFailed {
		for _, v := range r.Unresolved() {
			printNewline()
			if v.WhitespaceOnly() {
				printWarning("%s is on target but has less whitespace than the reference", v.ID)
				printDetail("%s", whitespaceHint(v.Assessment))
				continue
			}
			printInfo("%s did not converge; best settings seen:", v.ID)
			printDetail("%s (score %.2f)", formatSettings(v.Best), v.BestScore)
		}
	}

	if r.DryRun {
		for _, v := range r.Variants {
			if v.Proposed == nil {
				continue
			}
			printInfo("%s would move to %s", v.ID, formatSettings(*v.Proposed))
			printDetail("strategy: %s", v.Strategy)
		}
	}

	if r.Diff != "" {
		printNewline()
		printInfo("Settings changes")
		printDiff(r.Diff)
	}

	printNewline()
	printKeyValue("Run", r.RunID)
	printKeyValue("Duration", r.Duration.Round(time.Millisecond).String())
}

// reportTable renders the per-variant table.
func reportTable(variants []calibrate.VariantReport) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(reportHeaders...).
		Rows(reportRows(variants)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col == 1 && row >= 0 && row < len(variants) {
				return styleCell.Inherit(classStyle(variants[row].Class))
			}
			return styleCell
		})
	return t.String()
}

func reportRows(variants []calibrate.VariantReport) [][]string {
	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		a := v.Assessment
		rows = append(rows, []string{
			v.ID,
			string(v.Class),
			fmt.Sprintf("%d", a.Measurement.Pages),
			fmt.Sprintf("%+.2fpt", a.DeltaPts),
			fmt.Sprintf("%.4f", v.Settings.Scale),
			fmt.Sprintf("%.4f", v.Settings.Leading),
			fmt.Sprintf("%+.2fpt", v.Settings.TopOffsetPts),
		})
	}
	return rows
}

func classStyle(c calibrate.Class) lipgloss.Style {
	switch c {
	case calibrate.ClassPass:
		return StyleSuccess
	case calibrate.ClassAdjustable:
		return StyleWarning
	default:
		return StyleFailure
	}
}

// whitespaceHint describes the deficits left once bottom whitespace is on
// target. Print settings cannot fix these.
func whitespaceHint(a layout.Assessment) string {
	var parts []string
	if a.TopDeficitPts > 0 {
		parts = append(parts, fmt.Sprintf("top %.2fpt", a.TopDeficitPts))
	}
	if a.BottomDeficitPts > 0 {
		parts = append(parts, fmt.Sprintf("bottom %.2fpt", a.BottomDeficitPts))
	}
	return fmt.Sprintf("short of the reference by %s; trim the variant's content or widen the reference margins",
		strings.Join(parts, ", "))
}

func formatSettings(s layout.PrintSettings) string {
	return fmt.Sprintf("scale %.4f, leading %.4f, top %+.2fpt", s.Scale, s.Leading, s.TopOffsetPts)
}
