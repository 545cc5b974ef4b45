package main

import (
	"errors"
	"fmt"
	"os"

	"convbench/internal/config"
	"convbench/internal/tuning"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tunePlanPath string

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Prepare and launch schedule search with the external tuner",
}

var tunePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Write the tuning plan for the default tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, plan, err := writeTuningPlan()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Wrote plan with %d tasks to %s\n", len(plan.Tasks), path)
		fmt.Fprintf(out, "trials: %d, runner: %s, records: %s\n",
			plan.Options.NumMeasureTrials, plan.Options.Runner.Address(), plan.Options.RecordFile)
		return nil
	},
}

var tuneLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Write the plan and run the configured tuner command on it",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, err := writeTuningPlan()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()

		l := &tuning.Launcher{
			Command: viper.GetString("tuning.command"),
			Args:    viper.GetStringSlice("tuning.args"),
			Stdout:  cmd.OutOrStdout(),
			Stderr:  cmd.ErrOrStderr(),
		}
		return l.Launch(ctx, path)
	},
}

func init() {
	rootCmd.AddCommand(tuneCmd)
	tuneCmd.AddCommand(tunePlanCmd, tuneLaunchCmd)
	tuneCmd.PersistentFlags().StringVar(&tunePlanPath, "plan", "", "Plan file (default from tuning.plan_path)")
}

func writeTuningPlan() (string, *tuning.Plan, error) {
	tasks, err := tuning.DefaultTasks()
	if err != nil {
		return "", nil, err
	}
	opts, err := config.TuningOptions(len(tasks))
	if err != nil {
		return "", nil, err
	}
	plan, err := tuning.NewPlan(tasks, opts)
	if err != nil {
		return "", nil, err
	}
	path := tunePlanPath
	if path == "" {
		path = viper.GetString("tuning.plan_path")
	}
	if path == "" {
		return "", nil, errors.New("no plan path configured")
	}
	if err := tuning.WritePlan(path, plan); err != nil {
		return "", nil, err
	}
	return path, plan, nil
}

func recordFile() string {
	if f := viper.GetString("tuning.record_file"); f != "" {
		return f
	}
	return tuning.DefaultOptions(0).RecordFile
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
