package config

import (
	"fmt"
	"os"
	"strings"

	"convbench/internal/benchmark"
	"convbench/internal/tuning"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// A missing .env is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CONVBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("metrics_port", 0)

	viper.SetDefault("backend.kind", "exec")
	viper.SetDefault("backend.binary", "./conv")
	viper.SetDefault("backend.workdir", "")
	viper.SetDefault("backend.marker", benchmark.DefaultMarker)
	viper.SetDefault("backend.parse_mode", string(benchmark.TokenAfterMarker))
	viper.SetDefault("backend.timeout", "0s")
	viper.SetDefault("backend.flag_layout", "legacy")

	viper.SetDefault("docker.image", "")
	viper.SetDefault("docker.platform", "")
	viper.SetDefault("docker.workdir", "")
	viper.SetDefault("docker.gpus", true)

	viper.SetDefault("store.type", "file")
	viper.SetDefault("store.path", "") // per-type default in db.NewStore
	viper.SetDefault("store.dsn", "")

	viper.SetDefault("tuning.command", "")
	viper.SetDefault("tuning.plan_path", ".convbench/tuning-plan.json")

	slackEnabled := os.Getenv("SLACK_BOT_USER_TOKEN") != ""
	viper.SetDefault("notifications.slack.enabled", slackEnabled)
	viper.SetDefault("notifications.slack.channel", "#benchmarks")
}

// FlagLayout returns the configured flag layout with any backend.flags
// overrides applied.
func FlagLayout() (benchmark.FlagLayout, error) {
	layout, err := benchmark.FlagLayoutByName(viper.GetString("backend.flag_layout"))
	if err != nil {
		return benchmark.FlagLayout{}, err
	}
	if viper.IsSet("backend.flags") {
		if err := viper.UnmarshalKey("backend.flags", &layout); err != nil {
			return benchmark.FlagLayout{}, fmt.Errorf("invalid backend.flags: %w", err)
		}
	}
	return layout, nil
}

// Parser returns the result parser configured by backend.marker and
// backend.parse_mode.
func Parser() (benchmark.Parser, error) {
	mode, err := benchmark.ParseModeByName(viper.GetString("backend.parse_mode"))
	if err != nil {
		return benchmark.Parser{}, err
	}
	p := benchmark.NewParser(viper.GetString("backend.marker"))
	p.Mode = mode
	return p, nil
}

// Scenarios returns the configured scenarios, or the default suite when
// none are declared.
func Scenarios() ([]benchmark.Scenario, error) {
	if !viper.IsSet("scenarios") {
		return benchmark.DefaultSuite(), nil
	}
	var specs []benchmark.ScenarioSpec
	if err := viper.UnmarshalKey("scenarios", &specs); err != nil {
		return nil, fmt.Errorf("invalid scenarios: %w", err)
	}
	if len(specs) == 0 {
		return benchmark.DefaultSuite(), nil
	}
	return benchmark.BuildAll(specs)
}

// TuningOptions returns the session options for nTasks tasks, starting
// from the defaults and applying the tuning.* keys.
func TuningOptions(nTasks int) (tuning.Options, error) {
	opts := tuning.DefaultOptions(nTasks)
	if viper.IsSet("tuning") {
		if err := viper.UnmarshalKey("tuning", &opts); err != nil {
			return tuning.Options{}, fmt.Errorf("invalid tuning options: %w", err)
		}
	}
	return opts, opts.Validate()
}
