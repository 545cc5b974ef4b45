package benchmark

import (
	"fmt"
	"math"
	"strings"
)

// Reducer combines the per-leg samples of a scenario into one value.
type Reducer struct {
	Name string
	Fn   func(values []float64) float64
}

var (
	// Sum models the total cost of a pipeline of legs.
	Sum = Reducer{Name: "sum", Fn: func(values []float64) float64 {
		var total float64
		for _, v := range values {
			total += v
		}
		return total
	}}

	// Min picks the best of interchangeable variants.
	Min = Reducer{Name: "min", Fn: func(values []float64) float64 {
		best := math.Inf(1)
		for _, v := range values {
			best = math.Min(best, v)
		}
		return best
	}}

	// Max picks the slowest leg.
	Max = Reducer{Name: "max", Fn: func(values []float64) float64 {
		worst := math.Inf(-1)
		for _, v := range values {
			worst = math.Max(worst, v)
		}
		return worst
	}}

	// Mean averages the legs.
	Mean = Reducer{Name: "mean", Fn: func(values []float64) float64 {
		return Sum.Fn(values) / float64(len(values))
	}}
)

// ReducerByName resolves a reducer from its configuration name.
func ReducerByName(name string) (Reducer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sum", "total":
		return Sum, nil
	case "min", "best":
		return Min, nil
	case "max":
		return Max, nil
	case "mean", "avg":
		return Mean, nil
	default:
		return Reducer{}, fmt.Errorf("unknown reducer %q (want sum, min, max or mean)", name)
	}
}
