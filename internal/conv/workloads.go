package conv

import (
	"encoding/json"
	"fmt"
)

// Conv2DLayer is a grouped conv2d followed by bias add and relu. Its tuple is
// (N, H, W, CO, CI, KH, KW, stride, padding, dilation, groups).
var Conv2DLayer = Definition{
	Name: "conv2d_layer",
	Encode: func(p Params) []any {
		return []any{
			p.N, p.H, p.W, p.F, p.C, p.R, p.S,
			[]int{p.StrideH, p.StrideW},
			[]int{p.PadH, p.PadW},
			[]int{p.DilationH, p.DilationW},
			p.Groups,
		}
	},
	Decode: decodeConv2DLayer,
}

func decodeConv2DLayer(args []json.RawMessage) (Params, error) {
	if len(args) != 11 {
		return Params{}, fmt.Errorf("%w: expected 11 arguments, got %d", ErrInvalidParams, len(args))
	}

	var scalars [7]int
	for i := range scalars {
		if err := json.Unmarshal(args[i], &scalars[i]); err != nil {
			return Params{}, fmt.Errorf("%w: argument %d: %v", ErrInvalidParams, i, err)
		}
	}
	stride, err := decodePair(args[7])
	if err != nil {
		return Params{}, fmt.Errorf("stride: %w", err)
	}
	pad, err := decodePair(args[8])
	if err != nil {
		return Params{}, fmt.Errorf("padding: %w", err)
	}
	dilation, err := decodePair(args[9])
	if err != nil {
		return Params{}, fmt.Errorf("dilation: %w", err)
	}
	var groups int
	if err := json.Unmarshal(args[10], &groups); err != nil {
		return Params{}, fmt.Errorf("%w: groups: %v", ErrInvalidParams, err)
	}
	if groups <= 0 || scalars[4]%groups != 0 {
		return Params{}, fmt.Errorf("%w: %d input channels cannot be split into %d groups", ErrInvalidParams, scalars[4], groups)
	}

	n, h, w, co, ci, kh, kw := scalars[0], scalars[1], scalars[2], scalars[3], scalars[4], scalars[5], scalars[6]
	return NewParams(n, ci, h, w, co, ci/groups, kh, kw, pad, stride, dilation, groups)
}

// decodePair accepts either [a, b] or a single integer meaning [a, a].
func decodePair(raw json.RawMessage) ([2]int, error) {
	var single int
	if err := json.Unmarshal(raw, &single); err == nil {
		return [2]int{single, single}, nil
	}
	var pair []int
	if err := json.Unmarshal(raw, &pair); err != nil {
		return [2]int{}, fmt.Errorf("%w: %s is neither an integer nor a pair", ErrInvalidParams, string(raw))
	}
	if len(pair) != 2 {
		return [2]int{}, fmt.Errorf("%w: expected a pair, got %d values", ErrInvalidParams, len(pair))
	}
	return [2]int{pair[0], pair[1]}, nil
}
