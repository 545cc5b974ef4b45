package tuning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"convbench/internal/benchmark"
)

// Launcher runs the external tuner command with a plan file.
type Launcher struct {
	// Command is the tuner executable. The plan path is appended to Args.
	Command string
	Args    []string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
}

// Launch runs the tuner on planPath and waits for it to exit.
func (l *Launcher) Launch(ctx context.Context, planPath string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if l.Command == "" {
		return benchmark.Unavailable("tune", errors.New("no tuner command configured"))
	}
	path, err := exec.LookPath(benchmark.ResolveBinary(l.Command, l.Dir))
	if err != nil {
		return benchmark.Unavailable("tune", fmt.Errorf("locate %s: %w", l.Command, err))
	}

	args := append(append([]string{}, l.Args...), planPath)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = l.Dir
	cmd.WaitDelay = 2 * time.Second

	// Keep the tail of stderr for the error message while still streaming.
	var stderr bytes.Buffer
	cmd.Stdout = l.Stdout
	if l.Stderr != nil {
		cmd.Stderr = io.MultiWriter(l.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	logger.Info("Launching tuner", "command", path, "args", strings.Join(args, " "))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return benchmark.Unavailable("tune", fmt.Errorf("start %s: %w", path, err))
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return benchmark.Execution("tune", fmt.Errorf("%s interrupted: %w", l.Command, ctxErr))
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return benchmark.Execution("tune", fmt.Errorf("%s exited with status %d: %s",
				l.Command, exitErr.ExitCode(), tail(stderr.String(), 2048)))
		}
		return benchmark.Execution("tune", err)
	}
	logger.Info("Tuner finished", "elapsed", time.Since(start))
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
