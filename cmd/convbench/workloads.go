package main

import (
	"fmt"

	"convbench/internal/conv"
	"convbench/internal/tuning"

	"github.com/spf13/cobra"
)

var workloadsCmd = &cobra.Command{
	Use:   "workloads [key]",
	Short: "List registered workloads or decode a workload key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			name, p, err := conv.Default.Parse(args[0])
			if err != nil {
				return err
			}
			oh, ow := p.OutputSize()
			fmt.Fprintf(out, "workload: %s\nshape: %s\noutput: %dx%d\nflops: %d\n", name, p, oh, ow, p.FLOPs())
			return nil
		}

		fmt.Fprintln(out, "Registered workloads:")
		for _, name := range conv.Default.Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		tasks, err := tuning.DefaultTasks()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Default tuning tasks:")
		for _, t := range tasks {
			fmt.Fprintf(out, "  %s (%s)\n", t.Key, t.Target)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workloadsCmd)
}
