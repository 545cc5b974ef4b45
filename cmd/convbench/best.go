package main

import (
	"fmt"

	"convbench/internal/tuning"

	"github.com/spf13/cobra"
)

var (
	bestRecords string
	bestKey     string
)

var bestCmd = &cobra.Command{
	Use:   "best",
	Short: "Show the best tuning record per workload key",
	Long: `Reads the tuner's record file and prints the fastest error-free record for
the given key, or for every default tuning task when no key is given.`,
	RunE: runBest,
}

func init() {
	rootCmd.AddCommand(bestCmd)
	bestCmd.Flags().StringVar(&bestRecords, "records", "", "Record file (default from tuning.record_file)")
	bestCmd.Flags().StringVar(&bestKey, "key", "", "Workload key, a JSON array such as [\"conv2d_layer\",1,...]")
}

func runBest(cmd *cobra.Command, args []string) error {
	path := bestRecords
	if path == "" {
		path = recordFile()
	}
	if !fileExists(path) {
		return fmt.Errorf("record file %s does not exist", path)
	}

	keys := []string{bestKey}
	if bestKey == "" {
		tasks, err := tuning.DefaultTasks()
		if err != nil {
			return err
		}
		keys = keys[:0]
		for _, t := range tasks {
			keys = append(keys, t.Key)
		}
	}

	out := cmd.OutOrStdout()
	for _, key := range keys {
		rec, err := tuning.LoadBest(path, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n  best: %.4f ms over %d runs (line %d, %s)\n", rec.Key, rec.MeanMillis(), len(rec.Costs), rec.Line, rec.Target)
	}
	return nil
}
