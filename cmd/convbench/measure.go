package main

import (
	"fmt"
	"strings"

	"convbench/internal/benchmark"
	"convbench/internal/config"
	"convbench/internal/conv"

	"github.com/spf13/cobra"
)

var measureFlags struct {
	n, c, h, w, f, cg, r, s, groups int
	padH, padW                      int
	strideH, strideW                int
	dilationH, dilationW            int
	repeats                         int
	printCommand                    bool
}

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Measure a single convolution",
	Long: `Measures one convolution given on the command line. The channel count per
group defaults to c/groups.`,
	Example: `  convbench measure --n 1 --c 3072 --h 18 --w 18 --f 192 --groups 4`,
	RunE:    runMeasure,
}

func init() {
	rootCmd.AddCommand(measureCmd)
	f := measureCmd.Flags()
	f.IntVar(&measureFlags.n, "n", 1, "Batch size")
	f.IntVar(&measureFlags.c, "c", 0, "Input channels")
	f.IntVar(&measureFlags.h, "h", 0, "Input height")
	f.IntVar(&measureFlags.w, "w", 0, "Input width")
	f.IntVar(&measureFlags.f, "f", 0, "Output channels")
	f.IntVar(&measureFlags.cg, "cg", 0, "Input channels per group (default c/groups)")
	f.IntVar(&measureFlags.r, "r", 1, "Kernel height")
	f.IntVar(&measureFlags.s, "s", 1, "Kernel width")
	f.IntVar(&measureFlags.groups, "groups", 1, "Group count")
	f.IntVar(&measureFlags.padH, "pad-h", 0, "Padding height")
	f.IntVar(&measureFlags.padW, "pad-w", 0, "Padding width")
	f.IntVar(&measureFlags.strideH, "stride-h", 1, "Stride height")
	f.IntVar(&measureFlags.strideW, "stride-w", 1, "Stride width")
	f.IntVar(&measureFlags.dilationH, "dilation-h", 1, "Dilation height")
	f.IntVar(&measureFlags.dilationW, "dilation-w", 1, "Dilation width")
	f.IntVar(&measureFlags.repeats, "repeats", 1, "Measure this many times and report the median")
	f.BoolVar(&measureFlags.printCommand, "print-command", false, "Print the backend command line instead of running it")
}

func measureParams() (conv.Params, error) {
	m := measureFlags
	groups := m.groups
	if groups <= 0 {
		groups = 1
	}
	cg := m.cg
	if cg == 0 {
		cg = m.c / groups
	}
	return conv.NewParams(m.n, m.c, m.h, m.w, m.f, cg, m.r, m.s,
		[2]int{m.padH, m.padW}, [2]int{m.strideH, m.strideW}, [2]int{m.dilationH, m.dilationW}, m.groups)
}

func runMeasure(cmd *cobra.Command, args []string) error {
	p, err := measureParams()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if measureFlags.printCommand {
		layout, err := config.FlagLayout()
		if err != nil {
			return err
		}
		b := benchmark.NewExecBackend(backendBinary())
		b.Flags = layout
		fmt.Fprintln(out, strings.Join(b.Command(p), " "))
		for _, d := range layout.KnownDiscrepancies() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", d)
		}
		return nil
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	backend, cleanup, err := backendFactory(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	agg, err := newAggregator(backend)
	if err != nil {
		return err
	}
	res, err := agg.Run(ctx, benchmark.Scenario{
		Name:    "measure",
		Legs:    []benchmark.Leg{{Label: "conv", Params: p}},
		Reducer: benchmark.Sum,
		Repeats: measureFlags.repeats,
	})
	if err != nil {
		return err
	}

	sample := res.Samples[0]
	fmt.Fprintf(out, "%s\n", p)
	fmt.Fprintf(out, "time: %.4f ms\n", sample.Millis)
	if len(sample.Runs) > 0 {
		fmt.Fprintf(out, "runs: %v\n", sample.Runs)
	}
	if sample.Millis > 0 {
		fmt.Fprintf(out, "throughput: %.1f GFLOP/s\n", float64(p.FLOPs())/(sample.Millis*1e6))
	}
	return nil
}
