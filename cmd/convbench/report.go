package main

import (
	"errors"
	"fmt"

	"convbench/internal/benchmark"
	"convbench/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reportMarkdown  bool
	reportThreshold float64
	reportWidth     int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the latest saved run",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFactory()
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()

		runs, err := store.LoadAll()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return errors.New("no saved runs; use 'convbench run --save' first")
		}
		latest := runs[len(runs)-1]
		var prev *benchmark.Run
		if len(runs) > 1 {
			prev = &runs[len(runs)-2]
		}

		md := ui.Report(latest, prev, reportThreshold)
		if reportMarkdown {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		rendered, err := ui.RenderMarkdown(md, reportWidth, viper.GetBool("no_color"))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "Print raw markdown")
	reportCmd.Flags().Float64Var(&reportThreshold, "threshold", 10.0, "Percentage threshold for regression marks")
	reportCmd.Flags().IntVar(&reportWidth, "width", 100, "Wrap width for rendered output")
}
