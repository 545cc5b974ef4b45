package benchmark

import (
	"errors"
	"fmt"
)

// Error kinds reported by the harness. Use errors.Is to test for them.
var (
	// ErrBackendUnavailable is returned when the measurement executable or
	// service cannot be located or started.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendExecution is returned when a measurement ran but failed.
	ErrBackendExecution = errors.New("backend execution failed")

	// ErrParse is returned when backend output carries no usable timing.
	ErrParse = errors.New("parse error")

	// ErrScenarioAggregation is returned when any leg of a scenario failed.
	ErrScenarioAggregation = errors.New("scenario aggregation failed")
)

// Error carries the stage that failed along with its cause.
type Error struct {
	Kind     error  // one of the Err* kinds above
	Op       string // "measure", "parse", "aggregate", ...
	Scenario string
	Leg      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	switch {
	case e.Scenario != "" && e.Leg != "":
		msg = fmt.Sprintf("%s (scenario %s, leg %s)", msg, e.Scenario, e.Leg)
	case e.Scenario != "":
		msg = fmt.Sprintf("%s (scenario %s)", msg, e.Scenario)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool { return e.Kind == target }

// Unwrap returns the cause for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

func parseFailure(format string, args ...any) error {
	return &Error{Kind: ErrParse, Op: "parse", Err: fmt.Errorf(format, args...)}
}

// Unavailable wraps err as ErrBackendUnavailable.
func Unavailable(op string, err error) error {
	return &Error{Kind: ErrBackendUnavailable, Op: op, Err: err}
}

// Execution wraps err as ErrBackendExecution.
func Execution(op string, err error) error {
	return &Error{Kind: ErrBackendExecution, Op: op, Err: err}
}
