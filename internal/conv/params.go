package conv

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParams is returned when a convolution shape fails validation.
var ErrInvalidParams = errors.New("invalid convolution parameters")

// Params describes the shape of one (grouped) 2D convolution in NCHW layout.
// Values are constructed once per experiment case and never mutated.
type Params struct {
	N  int `json:"n" mapstructure:"n"`   // batch
	C  int `json:"c" mapstructure:"c"`   // input channels
	H  int `json:"h" mapstructure:"h"`   // input height
	W  int `json:"w" mapstructure:"w"`   // input width
	F  int `json:"f" mapstructure:"f"`   // output channels
	Cg int `json:"cg" mapstructure:"cg"` // input channels per group
	R  int `json:"r" mapstructure:"r"`   // kernel height
	S  int `json:"s" mapstructure:"s"`   // kernel width

	PadH      int `json:"pad_h" mapstructure:"pad_h"`
	PadW      int `json:"pad_w" mapstructure:"pad_w"`
	StrideH   int `json:"stride_h" mapstructure:"stride_h"`
	StrideW   int `json:"stride_w" mapstructure:"stride_w"`
	DilationH int `json:"dilation_h" mapstructure:"dilation_h"`
	DilationW int `json:"dilation_w" mapstructure:"dilation_w"`

	Groups int `json:"groups" mapstructure:"groups"`
}

// NewParams builds and validates a convolution shape.
func NewParams(n, c, h, w, f, cg, r, s int, pad, stride, dilation [2]int, groups int) (Params, error) {
	p := Params{
		N: n, C: c, H: h, W: w, F: f, Cg: cg, R: r, S: s,
		PadH: pad[0], PadW: pad[1],
		StrideH: stride[0], StrideW: stride[1],
		DilationH: dilation[0], DilationW: dilation[1],
		Groups: groups,
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// MustParams is like NewParams but panics on invalid input. Intended for
// package-level experiment tables.
func MustParams(n, c, h, w, f, cg, r, s int, pad, stride, dilation [2]int, groups int) Params {
	p, err := NewParams(n, c, h, w, f, cg, r, s, pad, stride, dilation, groups)
	if err != nil {
		panic(err)
	}
	return p
}

// GroupedFrom builds Params from NCHW input and FCRS kernel dimensions, where
// kernel[1] is the per-group input channel count.
func GroupedFrom(input, kernel [4]int, pad, stride, dilation [2]int, groups int) (Params, error) {
	return NewParams(input[0], input[1], input[2], input[3],
		kernel[0], kernel[1], kernel[2], kernel[3],
		pad, stride, dilation, groups)
}

// Validate checks every extent and the grouping invariant C == Cg * Groups.
func (p Params) Validate() error {
	var problems []string

	positive := []struct {
		name string
		v    int
	}{
		{"n", p.N}, {"c", p.C}, {"h", p.H}, {"w", p.W}, {"f", p.F},
		{"cg", p.Cg}, {"r", p.R}, {"s", p.S}, {"groups", p.Groups},
		{"stride_h", p.StrideH}, {"stride_w", p.StrideW},
		{"dilation_h", p.DilationH}, {"dilation_w", p.DilationW},
	}
	for _, f := range positive {
		if f.v <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", f.name, f.v))
		}
	}
	if p.PadH < 0 || p.PadW < 0 {
		problems = append(problems, fmt.Sprintf("padding must be non-negative, got (%d, %d)", p.PadH, p.PadW))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}

	if p.C != p.Cg*p.Groups {
		return fmt.Errorf("%w: c (%d) != cg (%d) * groups (%d)", ErrInvalidParams, p.C, p.Cg, p.Groups)
	}
	if ph, pw := p.OutputSize(); ph <= 0 || pw <= 0 {
		return fmt.Errorf("%w: empty output %dx%d", ErrInvalidParams, ph, pw)
	}
	return nil
}

// OutputSize returns the spatial extent (P, Q) of the convolution output.
func (p Params) OutputSize() (int, int) {
	if p.StrideH <= 0 || p.StrideW <= 0 {
		return 0, 0
	}
	outH := (p.H+2*p.PadH-p.DilationH*(p.R-1)-1)/p.StrideH + 1
	outW := (p.W+2*p.PadW-p.DilationW*(p.S-1)-1)/p.StrideW + 1
	return outH, outW
}

// FLOPs counts multiply-adds as two operations.
func (p Params) FLOPs() int64 {
	outH, outW := p.OutputSize()
	return 2 * int64(p.N) * int64(p.F) * int64(outH) * int64(outW) *
		int64(p.Cg) * int64(p.R) * int64(p.S)
}

// String renders the shape compactly for logs and tables.
func (p Params) String() string {
	return fmt.Sprintf("n%d c%d %dx%d f%d g%d k%dx%d p%d,%d s%d,%d d%d,%d",
		p.N, p.C, p.H, p.W, p.F, p.Groups, p.R, p.S,
		p.PadH, p.PadW, p.StrideH, p.StrideW, p.DilationH, p.DilationW)
}
