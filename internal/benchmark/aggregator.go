package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/perf/benchmath"
)

// Observer receives measurement events, e.g. for metrics export.
type Observer interface {
	ObserveSample(scenario, leg string, millis float64, elapsed time.Duration)
	ObserveFailure(scenario, leg, kind string)
	ObserveResult(scenario string, value float64)
}

// Aggregator measures scenario legs one after another and reduces their
// timings into a ComparisonResult.
type Aggregator struct {
	Backend  Backend
	Parser   Parser
	Observer Observer
	Logger   *slog.Logger
}

// NewAggregator creates an aggregator over backend with the default parser.
func NewAggregator(backend Backend) *Aggregator {
	return &Aggregator{Backend: backend, Parser: NewParser(DefaultMarker)}
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Run measures every leg of s in order. Any failing leg aborts the scenario
// and no result is returned.
func (a *Aggregator) Run(ctx context.Context, s Scenario) (*ComparisonResult, error) {
	if len(s.Legs) == 0 {
		return nil, &Error{Kind: ErrScenarioAggregation, Op: "aggregate", Scenario: s.Name, Err: errors.New("scenario has no legs")}
	}
	reducer := s.Reducer
	if reducer.Fn == nil {
		reducer = Sum
	}
	repeats := s.Repeats
	if repeats <= 0 {
		repeats = 1
	}
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}

	logger := a.logger().With("scenario", s.Name)
	logger.Info("Running scenario", "legs", len(s.Legs), "reducer", reducer.Name, "repeats", repeats)

	result := &ComparisonResult{
		Scenario:  s.Name,
		Reducer:   reducer.Name,
		StartedAt: time.Now(),
	}

	values := make([]float64, 0, len(s.Legs))
	for i, leg := range s.Legs {
		label := leg.Label
		if label == "" {
			label = fmt.Sprintf("leg%d", i+1)
		}

		sample, err := a.measureLeg(ctx, leg, label, repeats, s.Name)
		if err != nil {
			logger.Error("Scenario aborted", "leg", label, "error", err)
			if a.Observer != nil {
				a.Observer.ObserveFailure(s.Name, label, failureKind(err))
			}
			return nil, &Error{Kind: ErrScenarioAggregation, Op: "aggregate", Scenario: s.Name, Leg: label, Err: err}
		}
		result.Samples = append(result.Samples, sample)
		values = append(values, sample.Millis)
	}

	result.Value = reducer.Fn(values) * scale
	result.Elapsed = time.Since(result.StartedAt)
	if a.Observer != nil {
		a.Observer.ObserveResult(s.Name, result.Value)
	}
	logger.Info("Scenario finished", "value_ms", result.Value, "elapsed", result.Elapsed)
	return result, nil
}

func (a *Aggregator) measureLeg(ctx context.Context, leg Leg, label string, repeats int, scenario string) (Sample, error) {
	if err := leg.Params.Validate(); err != nil {
		return Sample{}, err
	}

	sample := Sample{Label: label, Params: leg.Params}
	for i := 0; i < repeats; i++ {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		start := time.Now()
		out, err := a.Backend.Measure(ctx, leg.Params)
		if err != nil {
			return Sample{}, err
		}
		ms, err := a.Parser.Parse(out)
		if err != nil {
			return Sample{}, err
		}
		if a.Observer != nil {
			a.Observer.ObserveSample(scenario, label, ms, time.Since(start))
		}
		a.logger().Debug("Leg measured", "scenario", scenario, "leg", label, "run", i+1, "millis", ms)
		sample.Runs = append(sample.Runs, ms)
	}

	if len(sample.Runs) == 1 {
		sample.Millis = sample.Runs[0]
		sample.Runs = nil
		return sample, nil
	}
	sample.Millis = Median(sample.Runs)
	return sample, nil
}

// Median summarizes repeated measurements without assuming a distribution.
func Median(values []float64) float64 {
	vals := append([]float64(nil), values...)
	s := benchmath.NewSample(vals, &benchmath.DefaultThresholds)
	return benchmath.AssumeNothing.Summary(s, 0.95).Center
}

// RunSuite runs scenarios in order and stops at the first failure. Results of
// scenarios completed before the failure are returned with the error.
func (a *Aggregator) RunSuite(ctx context.Context, scenarios []Scenario) ([]ComparisonResult, error) {
	var results []ComparisonResult
	for _, s := range scenarios {
		res, err := a.Run(ctx, s)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	case errors.Is(err, ErrBackendExecution):
		return "execution"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
