// Package ui renders benchmark results for the terminal.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"convbench/internal/benchmark"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func millis(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// ResultsTable renders one row per leg and a total row per scenario.
func ResultsTable(results []benchmark.ComparisonResult) string {
	t := newTable("Scenario", "Leg", "Shape", "Time (ms)")
	for _, res := range results {
		for _, s := range res.Samples {
			t.Row(res.Scenario, s.Label, s.Params.String(), millis(s.Millis))
		}
		t.Row(res.Scenario, mutedStyle.Render(res.Reducer), "", millis(res.Value))
	}
	return t.Render()
}

// ComparisonTable renders changes against a previous run. Rows beyond
// threshold percent are highlighted.
func ComparisonTable(comparisons []benchmark.Comparison, threshold float64) string {
	t := newTable("Scenario", "Previous (ms)", "Current (ms)", "Change", "Status")
	for _, c := range comparisons {
		status := "ok"
		switch {
		case c.Regressed(threshold):
			status = regressedStyle.Render("REGRESSED")
		case c.Improved(threshold):
			status = improvedStyle.Render("improved")
		}
		t.Row(c.Scenario, millis(c.Prev.Value), millis(c.Curr.Value), fmt.Sprintf("%+.2f%%", c.ValueDiff), status)
	}
	return t.Render()
}

// HistoryTable renders saved runs, newest last.
func HistoryTable(runs []benchmark.Run) string {
	t := newTable("Run", "Time", "Commit", "Results")
	for _, run := range runs {
		parts := make([]string, 0, len(run.Results))
		for _, res := range run.Results {
			parts = append(parts, fmt.Sprintf("%s=%s", res.Scenario, millis(res.Value)))
		}
		commit := run.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		t.Row(run.ID, run.Timestamp.Local().Format("2006-01-02 15:04:05"), commit, strings.Join(parts, " "))
	}
	return t.Render()
}
