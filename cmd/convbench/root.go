package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"convbench/internal/config"
	"convbench/internal/metrics"
	"convbench/internal/telemetry"
	"convbench/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exit = os.Exit
var cfgFile string

var (
	benchMetrics     = metrics.NewMetrics()
	metricsOnce      sync.Once
	logCloser        io.Closer
	startMetricsFunc = telemetry.StartMetricsServer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "convbench",
	Short: "Convolution benchmark harness",
	Long: `convbench declares convolution and grouped-convolution shapes, measures
them with an external benchmark binary, parses the reported time and
combines the legs of each scenario into a comparison value.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().Int("metrics-port", 0, "Expose Prometheus metrics on this port (0 disables)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("metrics_port", rootCmd.PersistentFlags().Lookup("metrics-port"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.Load(cfgFile)

	if err := config.ValidateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}

	if logCloser != nil {
		logCloser.Close()
	}
	logCloser = telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))

	if viper.GetBool("no_color") {
		ui.DisableColor()
	}

	if port := viper.GetInt("metrics_port"); port > 0 {
		metricsOnce.Do(func() {
			if _, err := startMetricsFunc(context.Background(), port, benchMetrics.Handler()); err != nil {
				slog.Warn("Failed to start metrics server", "port", port, "error", err)
			}
		})
	}
}
