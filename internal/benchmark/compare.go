package benchmark

import "fmt"

type Comparison struct {
	Scenario  string
	ValueDiff float64 // Percentage change
	Prev      ComparisonResult
	Curr      ComparisonResult
}

// Compare runs comparison between two runs.
// It returns a list of comparisons for scenarios present in both runs.
func Compare(prev, curr Run) []Comparison {
	prevMap := make(map[string]ComparisonResult)
	for _, r := range prev.Results {
		prevMap[r.Scenario] = r
	}

	var comparisons []Comparison
	for _, c := range curr.Results {
		if p, ok := prevMap[c.Scenario]; ok {
			comp := Comparison{
				Scenario: c.Scenario,
				Prev:     p,
				Curr:     c,
			}
			if p.Value > 0 {
				comp.ValueDiff = ((c.Value - p.Value) / p.Value) * 100
			}
			comparisons = append(comparisons, comp)
		}
	}
	return comparisons
}

// Regressed reports whether the scenario got slower by more than threshold
// percent.
func (c Comparison) Regressed(threshold float64) bool {
	return c.ValueDiff > threshold
}

// Improved reports whether the scenario got faster by more than threshold
// percent.
func (c Comparison) Improved(threshold float64) bool {
	return c.ValueDiff < -threshold
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %+.2f%% (%.4f ms -> %.4f ms)", c.Scenario, c.ValueDiff, c.Prev.Value, c.Curr.Value)
}

// Speedup returns how many times faster candidate is than baseline.
func Speedup(baseline, candidate ComparisonResult) (float64, error) {
	if candidate.Value <= 0 {
		return 0, fmt.Errorf("scenario %s has non-positive time %v", candidate.Scenario, candidate.Value)
	}
	return baseline.Value / candidate.Value, nil
}
