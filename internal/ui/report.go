package ui

import (
	"fmt"
	"strings"

	"convbench/internal/benchmark"

	"github.com/charmbracelet/glamour"
)

// Report renders run as markdown. When prev is not nil a comparison section
// is added.
func Report(run benchmark.Run, prev *benchmark.Run, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Convolution benchmark %s\n\n", run.ID)
	fmt.Fprintf(&b, "Recorded %s", run.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	if run.Commit != "" {
		fmt.Fprintf(&b, " at commit `%s`", run.Commit)
	}
	b.WriteString(".\n\n")

	for _, res := range run.Results {
		fmt.Fprintf(&b, "## %s\n\n", res.Scenario)
		fmt.Fprintf(&b, "**%s** of %d legs: **%s ms** (measured in %s)\n\n", res.Reducer, len(res.Samples), millis(res.Value), res.Elapsed.Round(1e6))
		b.WriteString("| Leg | Shape | GFLOP | Time (ms) |\n|---|---|---:|---:|\n")
		for _, s := range res.Samples {
			fmt.Fprintf(&b, "| %s | `%s` | %.3f | %s |\n", s.Label, s.Params.String(), float64(s.Params.FLOPs())/1e9, millis(s.Millis))
		}
		b.WriteString("\n")
	}

	if origin, ok := run.Result("origin"); ok {
		if opt, ok := run.Result("opt"); ok {
			if speedup, err := benchmark.Speedup(origin, opt); err == nil {
				fmt.Fprintf(&b, "Speedup of `opt` over `origin`: **%.2fx**\n\n", speedup)
			}
		}
	}

	if prev != nil {
		fmt.Fprintf(&b, "## Compared with %s\n\n", prev.ID)
		b.WriteString("| Scenario | Previous (ms) | Current (ms) | Change |\n|---|---:|---:|---:|\n")
		for _, c := range benchmark.Compare(*prev, run) {
			change := fmt.Sprintf("%+.2f%%", c.ValueDiff)
			if c.Regressed(threshold) {
				change += " ⚠"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.Scenario, millis(c.Prev.Value), millis(c.Curr.Value), change)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderMarkdown renders md for the terminal. Plain uses the no-color style.
func RenderMarkdown(md string, width int, plain bool) (string, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
