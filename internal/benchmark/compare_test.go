package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	prev := Run{
		Results: []ComparisonResult{
			{Scenario: "origin", Value: 100},
			{Scenario: "opt", Value: 40},
		},
	}
	curr := Run{
		Results: []ComparisonResult{
			{Scenario: "origin", Value: 110}, // 10% slower
			{Scenario: "opt", Value: 30},     // 25% faster
			{Scenario: "new", Value: 5},
		},
	}

	comps := Compare(prev, curr)
	require.Len(t, comps, 2)

	assert.Equal(t, "origin", comps[0].Scenario)
	assert.InDelta(t, 10.0, comps[0].ValueDiff, 0.01)
	assert.True(t, comps[0].Regressed(5))
	assert.False(t, comps[0].Regressed(15))

	assert.InDelta(t, -25.0, comps[1].ValueDiff, 0.01)
	assert.True(t, comps[1].Improved(10))
	assert.False(t, comps[1].Regressed(10))
	assert.Equal(t, "opt: -25.00% (40.0000 ms -> 30.0000 ms)", comps[1].String())
}

func TestSpeedup(t *testing.T) {
	s, err := Speedup(ComparisonResult{Value: 9}, ComparisonResult{Value: 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s)

	_, err = Speedup(ComparisonResult{Value: 9}, ComparisonResult{Scenario: "opt"})
	assert.Error(t, err)
}
