package ui

import (
	"strings"
	"testing"
	"time"

	"convbench/internal/benchmark"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func sampleRuns() (benchmark.Run, benchmark.Run) {
	suite := benchmark.DefaultSuite()
	legs := func(s benchmark.Scenario, ms ...float64) []benchmark.Sample {
		out := make([]benchmark.Sample, len(s.Legs))
		for i, l := range s.Legs {
			out[i] = benchmark.Sample{Label: l.Label, Params: l.Params, Millis: ms[i]}
		}
		return out
	}
	prev := benchmark.Run{ID: "run-1", Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), Results: []benchmark.ComparisonResult{
		{Scenario: "origin", Reducer: "sum", Value: 0.20, Samples: legs(suite[0], 0.06, 0.04)},
		{Scenario: "opt", Reducer: "min", Value: 0.05, Samples: legs(suite[1], 0.05, 0.07)},
	}}
	curr := benchmark.Run{ID: "run-2", Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), Commit: "0123456789abcdef", Results: []benchmark.ComparisonResult{
		{Scenario: "origin", Reducer: "sum", Value: 0.24, Samples: legs(suite[0], 0.07, 0.05), Elapsed: 3 * time.Second},
		{Scenario: "opt", Reducer: "min", Value: 0.04, Samples: legs(suite[1], 0.04, 0.06)},
	}}
	return prev, curr
}

func TestResultsTable(t *testing.T) {
	_, curr := sampleRuns()
	out := ResultsTable(curr.Results)
	assert.Contains(t, out, "Scenario")
	assert.Contains(t, out, "conv-192")
	assert.Contains(t, out, "gconv-11x32")
	assert.Contains(t, out, "0.2400")
	assert.Contains(t, out, "n1 c768 18x18 f192 g1")
	assert.Equal(t, 3, strings.Count(out, "origin"), "two legs and a total row")
}

func TestComparisonTable(t *testing.T) {
	prev, curr := sampleRuns()
	out := ComparisonTable(benchmark.Compare(prev, curr), 10)
	assert.Contains(t, out, "+20.00%")
	assert.Contains(t, out, "REGRESSED")
	assert.Contains(t, out, "-20.00%")
	assert.Contains(t, out, "improved")

	out = ComparisonTable(benchmark.Compare(prev, curr), 50)
	assert.NotContains(t, out, "REGRESSED")
}

func TestHistoryTable(t *testing.T) {
	prev, curr := sampleRuns()
	out := HistoryTable([]benchmark.Run{prev, curr})
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "origin=0.2400")
}

func TestReport(t *testing.T) {
	prev, curr := sampleRuns()
	md := Report(curr, &prev, 10)
	assert.Contains(t, md, "# Convolution benchmark run-2")
	assert.Contains(t, md, "at commit `0123456789abcdef`")
	assert.Contains(t, md, "**sum** of 2 legs: **0.2400 ms** (measured in 3s)")
	assert.Contains(t, md, "| conv-192 |")
	assert.Contains(t, md, "Speedup of `opt` over `origin`: **6.00x**")
	assert.Contains(t, md, "## Compared with run-1")
	assert.Contains(t, md, "| origin | 0.2000 | 0.2400 | +20.00% ⚠ |")

	assert.NotContains(t, Report(curr, nil, 10), "Compared with")
}

func TestRenderMarkdown(t *testing.T) {
	_, curr := sampleRuns()
	out, err := RenderMarkdown(Report(curr, nil, 10), 100, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Convolution benchmark run-2")
	assert.Contains(t, out, "conv-192")
	assert.NotContains(t, out, "\x1b[")
}
