package main

import (
	"fmt"
	"io"
	"os"

	"convbench/internal/benchmark"
	"convbench/internal/config"

	"github.com/spf13/cobra"
)

var (
	parseMarker string
	parseMode   string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract the timing from captured backend output",
	Long: `Reads backend output from a file, or standard input when no file is given,
and prints the time that follows the marker.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&parseMarker, "marker", "", "Marker preceding the time (default from backend.marker)")
	parseCmd.Flags().StringVar(&parseMode, "mode", "", "after-marker or last-token (default from backend.parse_mode)")
}

func runParse(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read output: %w", err)
	}

	parser, err := config.Parser()
	if err != nil {
		return err
	}
	if parseMarker != "" {
		parser.Marker = parseMarker
	}
	if parseMode != "" {
		if parser.Mode, err = benchmark.ParseModeByName(parseMode); err != nil {
			return err
		}
	}

	v, err := parser.Parse(string(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%g\n", v)
	return nil
}
