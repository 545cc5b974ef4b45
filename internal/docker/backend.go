package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"convbench/internal/benchmark"
	"convbench/internal/conv"
)

// Backend measures convolutions by running the benchmark binary inside a
// container that is started on first use and reused for later calls.
type Backend struct {
	Client  *Client
	Options ContainerOptions
	Binary  string // path inside the container
	Flags   benchmark.FlagLayout
	Logger  *slog.Logger

	mu          sync.Mutex
	containerID string
}

// NewBackend creates a container backend for binary in image.
func NewBackend(c *Client, opts ContainerOptions, binary string) *Backend {
	return &Backend{Client: c, Options: opts, Binary: binary, Flags: benchmark.DefaultFlagLayout()}
}

func (b *Backend) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Backend) ensureContainer(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.containerID != "" {
		return b.containerID, nil
	}

	if err := b.Client.CheckDaemon(ctx); err != nil {
		return "", err
	}
	ok, err := b.Client.CheckImage(ctx, b.Options.Image)
	if err != nil {
		return "", err
	}
	if !ok {
		b.logger().Info("Pulling measurement image", "image", b.Options.Image)
		if err := b.Client.PullImage(ctx, b.Options.Image); err != nil {
			return "", err
		}
	}

	id, err := b.Client.StartContainer(ctx, b.Options)
	if err != nil {
		return "", err
	}
	b.logger().Info("Measurement container started", "image", b.Options.Image, "container", id)
	b.containerID = id
	return id, nil
}

// Measure runs the binary for p inside the container.
func (b *Backend) Measure(ctx context.Context, p conv.Params) (string, error) {
	if b.Binary == "" || b.Options.Image == "" {
		return "", benchmark.Unavailable("measure", errors.New("container backend needs an image and a binary"))
	}
	id, err := b.ensureContainer(ctx)
	if err != nil {
		return "", benchmark.Unavailable("measure", err)
	}

	if !b.Flags.DisableWarning {
		for _, d := range b.Flags.KnownDiscrepancies() {
			b.logger().Warn("Known flag layout discrepancy", "binary", b.Binary, "detail", d)
		}
	}

	cmd := append([]string{b.Binary}, b.Flags.Args(p)...)
	res, err := b.Client.Exec(ctx, id, cmd)
	if err != nil {
		return "", benchmark.Execution("measure", err)
	}
	switch res.ExitCode {
	case 0:
		return res.Stdout, nil
	case 126, 127:
		// Shell codes for "not executable" and "not found".
		return "", benchmark.Unavailable("measure", fmt.Errorf("%s not runnable in %s (exit %d): %s",
			b.Binary, b.Options.Image, res.ExitCode, strings.TrimSpace(res.Stderr)))
	default:
		return "", benchmark.Execution("measure", fmt.Errorf("%s exited with status %d: %s",
			b.Binary, res.ExitCode, strings.TrimSpace(res.Stderr+"\n"+res.Stdout)))
	}
}

// Close removes the container if one was started.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.containerID == "" {
		return nil
	}
	id := b.containerID
	b.containerID = ""
	return b.Client.StopContainer(ctx, id)
}
