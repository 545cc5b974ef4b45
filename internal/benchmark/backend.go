package benchmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"convbench/internal/conv"
)

// Backend runs one measurement of a convolution and returns the raw output.
type Backend interface {
	Measure(ctx context.Context, p conv.Params) (string, error)
}

// ExecBackend measures by invoking a prebuilt convolution binary, one process
// per call.
type ExecBackend struct {
	Binary string
	Dir    string
	Env    []string
	Flags  FlagLayout
	Logger *slog.Logger
}

// NewExecBackend creates a backend for binary using the legacy flag layout.
func NewExecBackend(binary string) *ExecBackend {
	return &ExecBackend{Binary: binary, Flags: DefaultFlagLayout()}
}

// execCommand allows mocking in tests.
var execCommand = exec.CommandContext

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the binary was killed.
const waitDelay = 2 * time.Second

// Command returns the argv used to measure p.
func (b *ExecBackend) Command(p conv.Params) []string {
	return append([]string{b.Binary}, b.Flags.Args(p)...)
}

// Measure runs the binary for p and returns its standard output.
func (b *ExecBackend) Measure(ctx context.Context, p conv.Params) (string, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if b.Binary == "" {
		return "", Unavailable("measure", errors.New("no backend binary configured"))
	}

	path, err := exec.LookPath(ResolveBinary(b.Binary, b.Dir))
	if err != nil {
		return "", Unavailable("measure", fmt.Errorf("locate %s: %w", b.Binary, err))
	}

	if !b.Flags.DisableWarning {
		for _, d := range b.Flags.KnownDiscrepancies() {
			logger.Warn("Known flag layout discrepancy", "binary", b.Binary, "detail", d)
		}
	}

	args := b.Flags.Args(p)
	cmd := execCommand(ctx, path, args...)
	cmd.Dir = b.Dir
	cmd.WaitDelay = waitDelay
	if len(b.Env) > 0 {
		cmd.Env = b.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Starting measurement", "binary", path, "args", strings.Join(args, " "))
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return "", Unavailable("measure", fmt.Errorf("start %s: %w", path, err))
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", Execution("measure", fmt.Errorf("%s interrupted: %w", b.Binary, ctxErr))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail := fmt.Errorf("%s exited with status %d: %s",
				b.Binary, exitErr.ExitCode(), strings.TrimSpace(stderr.String()+"\n"+stdout.String()))
			if code := exitErr.ExitCode(); code == 126 || code == 127 {
				return "", Unavailable("measure", detail)
			}
			return "", Execution("measure", detail)
		}
		return "", Execution("measure", err)
	}

	logger.Debug("Measurement finished", "binary", b.Binary, "elapsed", time.Since(start))
	return stdout.String(), nil
}

// ResolveBinary returns binary relative to dir when it is a relative path
// such as ./conv. Bare names are left for a PATH lookup.
func ResolveBinary(binary, dir string) string {
	if dir == "" || filepath.IsAbs(binary) || !strings.ContainsRune(binary, filepath.Separator) {
		return binary
	}
	return filepath.Join(dir, binary)
}

// TimeoutBackend bounds every call of the wrapped backend by Timeout.
type TimeoutBackend struct {
	Backend Backend
	Timeout time.Duration
}

// WithTimeout wraps b; a non-positive timeout returns b unchanged.
func WithTimeout(b Backend, timeout time.Duration) Backend {
	if timeout <= 0 {
		return b
	}
	return &TimeoutBackend{Backend: b, Timeout: timeout}
}

func (t *TimeoutBackend) Measure(ctx context.Context, p conv.Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	out, err := t.Backend.Measure(ctx, p)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return "", Execution("measure", fmt.Errorf("timed out after %v: %w", t.Timeout, context.DeadlineExceeded))
	}
	return out, err
}
