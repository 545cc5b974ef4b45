package tuning

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid tuning options")

// Search strategies understood by the tuner.
const (
	StrategyRoundRobin = "round-robin"
	StrategyGradient   = "gradient"
)

// Runner describes the remote measurement service reached through the
// tracker.
type Runner struct {
	Key         string `mapstructure:"key" json:"key"`
	Host        string `mapstructure:"host" json:"host"`
	Port        int    `mapstructure:"port" json:"port"`
	NParallel   int    `mapstructure:"n_parallel" json:"n_parallel"`
	Number      int    `mapstructure:"number" json:"number"`
	Repeat      int    `mapstructure:"repeat" json:"repeat"`
	Timeout     int    `mapstructure:"timeout" json:"timeout"` // seconds
	MinRepeatMs int    `mapstructure:"min_repeat_ms" json:"min_repeat_ms"`
}

// Options configure one tuning session.
type Options struct {
	NumMeasureTrials int    `mapstructure:"num_measure_trials" json:"num_measure_trials"`
	Runner           Runner `mapstructure:"runner" json:"runner"`
	RecordFile       string `mapstructure:"record_file" json:"record_file"`
	Strategy         string `mapstructure:"strategy" json:"strategy"`
	Verbose          int    `mapstructure:"verbose" json:"verbose"`
}

// DefaultOptions returns the session settings used for nTasks tasks.
func DefaultOptions(nTasks int) Options {
	return Options{
		NumMeasureTrials: 1024*nTasks + 1,
		Runner: Runner{
			Key:         "nico2_v100_32",
			Host:        "0.0.0.0",
			Port:        9190,
			NParallel:   8,
			Number:      5,
			Repeat:      1,
			Timeout:     20,
			MinRepeatMs: 300,
		},
		RecordFile: "gconv-1-nico1.json",
		Strategy:   StrategyRoundRobin,
		Verbose:    2,
	}
}

// Validate reports every invalid field at once.
func (o Options) Validate() error {
	var problems []string
	positive := []struct {
		name string
		v    int
	}{
		{"num_measure_trials", o.NumMeasureTrials},
		{"runner.n_parallel", o.Runner.NParallel},
		{"runner.number", o.Runner.Number},
		{"runner.repeat", o.Runner.Repeat},
		{"runner.timeout", o.Runner.Timeout},
	}
	for _, f := range positive {
		if f.v <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", f.name, f.v))
		}
	}
	if o.Runner.MinRepeatMs < 0 {
		problems = append(problems, fmt.Sprintf("runner.min_repeat_ms must be non-negative, got %d", o.Runner.MinRepeatMs))
	}
	if o.Runner.Port < 1 || o.Runner.Port > 65535 {
		problems = append(problems, fmt.Sprintf("runner.port must be between 1 and 65535, got %d", o.Runner.Port))
	}
	if o.Runner.Key == "" {
		problems = append(problems, "runner.key is required")
	}
	if o.Runner.Host == "" {
		problems = append(problems, "runner.host is required")
	}
	if o.RecordFile == "" {
		problems = append(problems, "record_file is required")
	}
	switch o.Strategy {
	case StrategyRoundRobin, StrategyGradient:
	default:
		problems = append(problems, fmt.Sprintf("strategy must be %s or %s, got %q", StrategyRoundRobin, StrategyGradient, o.Strategy))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidOptions, strings.Join(problems, "\n  "))
	}
	return nil
}

// Address is the tracker address of the runner.
func (r Runner) Address() string {
	return fmt.Sprintf("%s@%s:%d", r.Key, r.Host, r.Port)
}
