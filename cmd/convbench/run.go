package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"convbench/internal/benchmark"
	"convbench/internal/config"
	"convbench/internal/db"
	"convbench/internal/notify"
	"convbench/internal/ui"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runSave             bool
	runCompare          bool
	runThreshold        float64
	runNotify           bool
	runRepeats          int
	runFailOnRegression bool
)

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run the benchmark suite",
	Long: `Measures every leg of the configured scenarios (or only the named ones)
and prints one comparison value per scenario. Results can be saved to the
history store and compared against the previous saved run.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runSave, "save", false, "Save results to history")
	runCmd.Flags().BoolVar(&runCompare, "compare", true, "Compare with the last saved run")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 10.0, "Percentage threshold for regression warning")
	runCmd.Flags().BoolVar(&runNotify, "notify", false, "Post a summary to Slack")
	runCmd.Flags().IntVar(&runRepeats, "repeats", 0, "Measure each leg this many times (0 keeps the configured value)")
	runCmd.Flags().BoolVar(&runFailOnRegression, "fail-on-regression", false, "Exit non-zero when a scenario regressed beyond the threshold")
}

// signalContext cancels on interrupt so the running binary is killed.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

func newAggregator(backend benchmark.Backend) (*benchmark.Aggregator, error) {
	parser, err := config.Parser()
	if err != nil {
		return nil, err
	}
	agg := benchmark.NewAggregator(backend)
	agg.Parser = parser
	agg.Observer = benchMetrics
	agg.Logger = slog.Default()
	return agg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	all, err := config.Scenarios()
	if err != nil {
		return err
	}
	scenarios, err := benchmark.Select(all, args)
	if err != nil {
		return err
	}
	if runRepeats > 0 {
		for i := range scenarios {
			scenarios[i].Repeats = runRepeats
		}
	}

	backend, cleanup, err := backendFactory(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	agg, err := newAggregator(backend)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	results, err := agg.RunSuite(ctx, scenarios)
	if err != nil {
		if len(results) > 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Run incomplete; scenarios finished before the failure:")
			fmt.Fprintln(cmd.ErrOrStderr(), ui.ResultsTable(results))
		}
		return err
	}

	run := benchmark.Run{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Results:   results,
	}
	if c, err := gitCommit(); err == nil {
		run.Commit = c
	}

	fmt.Fprintln(out, ui.ResultsTable(results))
	if origin, ok := run.Result("origin"); ok {
		if opt, ok := run.Result("opt"); ok {
			if s, err := benchmark.Speedup(origin, opt); err == nil {
				fmt.Fprintf(out, "Speedup of opt over origin: %.2fx\n", s)
			}
		}
	}

	var comparisons []benchmark.Comparison
	var store db.Store
	if runSave {
		if store, err = storeFactory(); err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
	} else if runCompare {
		if store, err = storeFactory(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: skipping comparison, failed to open history store: %v\n", err)
			store = nil
		}
	}
	if store != nil {
		defer store.Close()

		if runCompare {
			prev, err := store.LoadLatest()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to load history: %v\n", err)
			} else if prev != nil {
				comparisons = benchmark.Compare(*prev, run)
				if len(comparisons) > 0 {
					fmt.Fprintf(out, "\nCompared with run %s:\n", prev.ID)
					fmt.Fprintln(out, ui.ComparisonTable(comparisons, runThreshold))
				}
			}
		}

		if runSave {
			if err := store.Save(run); err != nil {
				return fmt.Errorf("failed to save history: %w", err)
			}
			fmt.Fprintf(out, "\nResults saved as run %s\n", run.ID)
		}
	}

	if runNotify {
		if err := sendSummary(ctx, run, comparisons); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}

	if runFailOnRegression {
		var regressed []string
		for _, c := range comparisons {
			if c.Regressed(runThreshold) {
				regressed = append(regressed, c.Scenario)
			}
		}
		if len(regressed) > 0 {
			return fmt.Errorf("%d scenario(s) regressed beyond %.1f%%: %v", len(regressed), runThreshold, regressed)
		}
	}
	return nil
}

func sendSummary(ctx context.Context, run benchmark.Run, comparisons []benchmark.Comparison) error {
	n, err := notifierFactory()
	if err != nil {
		return err
	}
	if n == nil {
		return errors.New("notifications are disabled (notifications.slack.enabled)")
	}
	return n.Notify(ctx, notify.Summary(run, comparisons, runThreshold))
}
