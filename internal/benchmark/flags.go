package benchmark

import (
	"fmt"
	"strconv"

	"convbench/internal/conv"
)

// FlagLayout names the command-line flag for every convolution parameter of
// the measurement binary. Empty names are omitted from the command line.
type FlagLayout struct {
	Batch          string `mapstructure:"batch"`
	Channels       string `mapstructure:"channels"` // receives channels per group
	Height         string `mapstructure:"height"`
	Width          string `mapstructure:"width"`
	Filters        string `mapstructure:"filters"`
	Groups         string `mapstructure:"groups"`
	KernelH        string `mapstructure:"kernel_h"`
	KernelW        string `mapstructure:"kernel_w"`
	PadH           string `mapstructure:"pad_h"`
	PadW           string `mapstructure:"pad_w"`
	StrideH        string `mapstructure:"stride_h"`
	StrideW        string `mapstructure:"stride_w"`
	DilationH      string `mapstructure:"dilation_h"`
	DilationW      string `mapstructure:"dilation_w"`
	ChannelsTotal  bool   `mapstructure:"channels_total"` // pass C instead of Cg
	DisableWarning bool   `mapstructure:"disable_warning"`
}

// DefaultFlagLayout reproduces the command line of the legacy cudnn driver,
// including its reuse of -pw for the dilation width.
func DefaultFlagLayout() FlagLayout {
	return FlagLayout{
		Batch: "-n", Channels: "-c", Height: "-h", Width: "-w",
		Filters: "-f", Groups: "-g", KernelH: "-r", KernelW: "-s",
		PadH: "-ph", PadW: "-pw", StrideH: "-sh", StrideW: "-sw",
		DilationH: "-dh", DilationW: "-pw",
	}
}

// CorrectedFlagLayout passes the dilation width as -dw.
// TODO: make this the default once the binary owners confirm -dw is parsed.
func CorrectedFlagLayout() FlagLayout {
	l := DefaultFlagLayout()
	l.DilationW = "-dw"
	return l
}

// FlagLayoutByName resolves "legacy" or "corrected".
func FlagLayoutByName(name string) (FlagLayout, error) {
	switch name {
	case "", "legacy":
		return DefaultFlagLayout(), nil
	case "corrected":
		return CorrectedFlagLayout(), nil
	default:
		return FlagLayout{}, fmt.Errorf("unknown flag layout %q (want legacy or corrected)", name)
	}
}

// KnownDiscrepancies reports flags that are bound to more than one parameter.
// The binary only sees the last occurrence, so the earlier value is lost.
func (l FlagLayout) KnownDiscrepancies() []string {
	var out []string
	seen := make(map[string]string)
	for _, f := range l.fields() {
		if f.flag == "" {
			continue
		}
		if prev, ok := seen[f.flag]; ok {
			out = append(out, fmt.Sprintf("flag %s is passed for both %s and %s", f.flag, prev, f.param))
			continue
		}
		seen[f.flag] = f.param
	}
	return out
}

// Args renders the command-line arguments for p.
func (l FlagLayout) Args(p conv.Params) []string {
	values := map[string]int{
		"batch": p.N, "channels": p.Cg, "height": p.H, "width": p.W,
		"filters": p.F, "groups": p.Groups, "kernel_h": p.R, "kernel_w": p.S,
		"pad_h": p.PadH, "pad_w": p.PadW, "stride_h": p.StrideH, "stride_w": p.StrideW,
		"dilation_h": p.DilationH, "dilation_w": p.DilationW,
	}
	if l.ChannelsTotal {
		values["channels"] = p.C
	}

	var args []string
	for _, f := range l.fields() {
		if f.flag == "" {
			continue
		}
		args = append(args, f.flag, strconv.Itoa(values[f.param]))
	}
	return args
}

type flagField struct {
	param string
	flag  string
}

// fields lists parameters in command-line order.
func (l FlagLayout) fields() []flagField {
	return []flagField{
		{"batch", l.Batch},
		{"channels", l.Channels},
		{"height", l.Height},
		{"width", l.Width},
		{"filters", l.Filters},
		{"groups", l.Groups},
		{"kernel_h", l.KernelH},
		{"kernel_w", l.KernelW},
		{"pad_h", l.PadH},
		{"pad_w", l.PadW},
		{"stride_h", l.StrideH},
		{"stride_w", l.StrideW},
		{"dilation_h", l.DilationH},
		{"dilation_w", l.DilationW},
	}
}
