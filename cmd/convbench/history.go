package main

import (
	"fmt"

	"convbench/internal/ui"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved runs",
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
			fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
			return nil
		}
		if historyLimit > 0 && len(runs) > historyLimit {
			runs = runs[len(runs)-historyLimit:]
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.HistoryTable(runs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Show at most this many recent runs (0 for all)")
}
