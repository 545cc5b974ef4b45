package benchmark

import (
	"time"

	"convbench/internal/conv"
)

// Leg is one measured convolution of a scenario.
type Leg struct {
	Label  string      `json:"label"`
	Params conv.Params `json:"params"`
}

// Scenario is an ordered set of legs whose timings are combined by Reducer.
type Scenario struct {
	Name    string  `json:"name"`
	Legs    []Leg   `json:"legs"`
	Reducer Reducer `json:"-"`
	// Scale multiplies the reduced value. Zero means 1.
	Scale float64 `json:"scale,omitempty"`
	// Repeats is the number of measurements per leg. Zero means 1.
	Repeats int `json:"repeats,omitempty"`
}

// Sample is the timing of one leg in milliseconds.
type Sample struct {
	Label  string      `json:"label"`
	Params conv.Params `json:"params"`
	Millis float64     `json:"millis"`
	// Runs holds every raw measurement when the leg was repeated.
	Runs []float64 `json:"runs,omitempty"`
}

// ComparisonResult is the outcome of one scenario.
type ComparisonResult struct {
	Scenario  string        `json:"scenario"`
	Reducer   string        `json:"reducer"`
	Value     float64       `json:"value"`
	Samples   []Sample      `json:"samples"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Run represents a collection of scenario results from a single execution.
type Run struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Commit    string             `json:"commit,omitempty"` // Git commit hash
	Results   []ComparisonResult `json:"results"`
}

// Result returns the result for scenario name, if present.
func (r Run) Result(name string) (ComparisonResult, bool) {
	for _, res := range r.Results {
		if res.Scenario == name {
			return res, true
		}
	}
	return ComparisonResult{}, false
}
