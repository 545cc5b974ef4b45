package benchmark

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultMarker precedes the timing value in the convolution binary's output.
const DefaultMarker = "best time"

// ParseMode selects which token after the marker holds the timing.
type ParseMode string

const (
	// TokenAfterMarker parses the first token following the marker.
	TokenAfterMarker ParseMode = "after-marker"
	// LastToken parses the last token of the output from the marker on,
	// matching how the legacy driver script read the value.
	LastToken ParseMode = "last-token"
)

// Parser extracts a millisecond timing from backend output.
type Parser struct {
	Marker string
	Mode   ParseMode
}

// NewParser returns a parser for marker in TokenAfterMarker mode.
func NewParser(marker string) Parser {
	if marker == "" {
		marker = DefaultMarker
	}
	return Parser{Marker: marker, Mode: TokenAfterMarker}
}

// ParseModeByName resolves a mode from its configuration name.
func ParseModeByName(name string) (ParseMode, error) {
	switch ParseMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", TokenAfterMarker:
		return TokenAfterMarker, nil
	case LastToken:
		return LastToken, nil
	default:
		return "", fmt.Errorf("unknown parse mode %q (want %s or %s)", name, TokenAfterMarker, LastToken)
	}
}

// Parse locates the marker in output and returns the timing that follows it.
func (p Parser) Parse(output string) (float64, error) {
	marker := p.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	pos := strings.Index(output, marker)
	if pos < 0 {
		return 0, parseFailure("marker %q not found in output", marker)
	}
	rest := output[pos+len(marker):]

	var token string
	switch p.Mode {
	case LastToken:
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			token = fields[len(fields)-1]
		}
	case TokenAfterMarker, "":
		rest = strings.TrimLeft(rest, " \t:=")
		if fields := strings.Fields(rest); len(fields) > 0 {
			token = fields[0]
		}
	default:
		return 0, parseFailure("unknown parse mode %q", p.Mode)
	}

	if token == "" {
		return 0, parseFailure("no value after marker %q", marker)
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, parseFailure("value %q after marker %q is not a number", token, marker)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, parseFailure("value %q after marker %q is not a valid duration", token, marker)
	}
	return v, nil
}
