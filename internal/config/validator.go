package config

import (
	"fmt"
	"strings"

	"convbench/internal/benchmark"

	"github.com/spf13/viper"
)

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	// 0 disables the metrics endpoint
	if viper.IsSet("metrics_port") {
		port := viper.GetInt("metrics_port")
		if port < 0 || port > 65535 {
			errors = append(errors, fmt.Sprintf("metrics_port must be between 0 and 65535, got: %d", port))
		}
	}

	switch kind := viper.GetString("backend.kind"); kind {
	case "exec":
		if viper.GetString("backend.binary") == "" {
			errors = append(errors, "backend.binary is required for the exec backend")
		}
	case "docker":
		if viper.GetString("docker.image") == "" {
			errors = append(errors, "docker.image is required for the docker backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("backend.kind must be exec or docker, got: %q", kind))
	}

	if viper.IsSet("backend.timeout") {
		if d := viper.GetDuration("backend.timeout"); d < 0 {
			errors = append(errors, fmt.Sprintf("backend.timeout must not be negative, got: %v", d))
		}
	}

	if _, err := benchmark.ParseModeByName(viper.GetString("backend.parse_mode")); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := FlagLayout(); err != nil {
		errors = append(errors, err.Error())
	}
	if viper.GetString("backend.marker") == "" {
		errors = append(errors, "backend.marker must not be empty")
	}

	switch st := viper.GetString("store.type"); st {
	case "file", "sqlite":
	case "postgres":
		if viper.GetString("store.dsn") == "" {
			errors = append(errors, "store.dsn is required for the postgres store")
		}
	default:
		errors = append(errors, fmt.Sprintf("store.type must be file, sqlite or postgres, got: %q", st))
	}

	if viper.GetBool("notifications.slack.enabled") && viper.GetString("notifications.slack.channel") == "" {
		errors = append(errors, "notifications.slack.channel is required when slack is enabled")
	}

	if _, err := Scenarios(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}
	return nil
}
