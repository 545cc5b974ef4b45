package benchmark

import (
	"fmt"

	"convbench/internal/conv"
)

var (
	noPad = [2]int{0, 0}
	unit  = [2]int{1, 1}
)

// pointwise is a 1x1 convolution over an 18x18 map with cg channels per group.
func pointwise(c, f, cg int) conv.Params {
	return conv.MustParams(1, c, 18, 18, f, cg, 1, 1, noPad, unit, unit, c/cg)
}

// DefaultSuite compares two separate pointwise convolutions sharing an input
// ("origin") against the grouped convolutions they merge into ("opt").
func DefaultSuite() []Scenario {
	return []Scenario{
		{
			Name: "origin",
			Legs: []Leg{
				{Label: "conv-192", Params: pointwise(768, 192, 768)},
				{Label: "conv-160", Params: pointwise(768, 160, 768)},
			},
			Reducer: Sum,
			Scale:   2,
		},
		{
			Name: "opt",
			Legs: []Leg{
				{Label: "gconv-4x192", Params: pointwise(768*4, 192, 768)},
				{Label: "gconv-11x32", Params: pointwise(768*11, 32, 768)},
			},
			Reducer: Min,
		},
	}
}

// Select returns the scenarios named in names, in the order given. An empty
// names list returns all scenarios.
func Select(scenarios []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return scenarios, nil
	}
	byName := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		byName[s.Name] = s
	}
	var out []Scenario
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// LegSpec is the configuration form of a Leg.
type LegSpec struct {
	Label    string `mapstructure:"label" json:"label"`
	N        int    `mapstructure:"n" json:"n"`
	C        int    `mapstructure:"c" json:"c"`
	H        int    `mapstructure:"h" json:"h"`
	W        int    `mapstructure:"w" json:"w"`
	F        int    `mapstructure:"f" json:"f"`
	Cg       int    `mapstructure:"cg" json:"cg"`
	R        int    `mapstructure:"r" json:"r"`
	S        int    `mapstructure:"s" json:"s"`
	Pad      []int  `mapstructure:"pad" json:"pad"`
	Stride   []int  `mapstructure:"stride" json:"stride"`
	Dilation []int  `mapstructure:"dilation" json:"dilation"`
	Groups   int    `mapstructure:"groups" json:"groups"`
}

// ScenarioSpec is the configuration form of a Scenario.
type ScenarioSpec struct {
	Name    string    `mapstructure:"name" json:"name"`
	Reducer string    `mapstructure:"reducer" json:"reducer"`
	Scale   float64   `mapstructure:"scale" json:"scale"`
	Repeats int       `mapstructure:"repeats" json:"repeats"`
	Legs    []LegSpec `mapstructure:"legs" json:"legs"`
}

// Params converts the spec into validated convolution parameters. Missing
// pad defaults to 0, missing stride and dilation to 1, and missing cg to
// c/groups.
func (l LegSpec) Params() (conv.Params, error) {
	pad, err := pairOr(l.Pad, 0)
	if err != nil {
		return conv.Params{}, fmt.Errorf("pad: %w", err)
	}
	stride, err := pairOr(l.Stride, 1)
	if err != nil {
		return conv.Params{}, fmt.Errorf("stride: %w", err)
	}
	dilation, err := pairOr(l.Dilation, 1)
	if err != nil {
		return conv.Params{}, fmt.Errorf("dilation: %w", err)
	}
	groups := l.Groups
	if groups == 0 {
		groups = 1
	}
	cg := l.Cg
	if cg == 0 {
		cg = l.C / groups
	}
	return conv.NewParams(l.N, l.C, l.H, l.W, l.F, cg, l.R, l.S, pad, stride, dilation, groups)
}

// Build converts the spec into a runnable Scenario.
func (s ScenarioSpec) Build() (Scenario, error) {
	if s.Name == "" {
		return Scenario{}, fmt.Errorf("scenario name is required")
	}
	reducer := Sum
	if s.Reducer != "" {
		r, err := ReducerByName(s.Reducer)
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		reducer = r
	}
	if s.Scale < 0 || s.Repeats < 0 {
		return Scenario{}, fmt.Errorf("scenario %s: scale and repeats must not be negative", s.Name)
	}

	sc := Scenario{Name: s.Name, Reducer: reducer, Scale: s.Scale, Repeats: s.Repeats}
	for i, l := range s.Legs {
		p, err := l.Params()
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s leg %d: %w", s.Name, i+1, err)
		}
		label := l.Label
		if label == "" {
			label = fmt.Sprintf("leg%d", i+1)
		}
		sc.Legs = append(sc.Legs, Leg{Label: label, Params: p})
	}
	if len(sc.Legs) == 0 {
		return Scenario{}, fmt.Errorf("scenario %s has no legs", s.Name)
	}
	return sc, nil
}

// BuildAll converts specs, rejecting duplicate names.
func BuildAll(specs []ScenarioSpec) ([]Scenario, error) {
	seen := make(map[string]bool, len(specs))
	var out []Scenario
	for _, spec := range specs {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate scenario %q", spec.Name)
		}
		seen[spec.Name] = true
		sc, err := spec.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func pairOr(v []int, def int) ([2]int, error) {
	switch len(v) {
	case 0:
		return [2]int{def, def}, nil
	case 1:
		return [2]int{v[0], v[0]}, nil
	case 2:
		return [2]int{v[0], v[1]}, nil
	default:
		return [2]int{}, fmt.Errorf("expected at most 2 values, got %d", len(v))
	}
}
