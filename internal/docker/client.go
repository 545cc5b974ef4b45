package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// APIClient defines the subset of Docker API methods we use.
// This allows for mocking in tests.
type APIClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerExecCreate(ctx context.Context, container string, config container.ExecOptions) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecStartOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// Client wraps the official Docker client with the few operations the
// container backend needs.
type Client struct {
	api APIClient
}

// NewClient creates a new Docker client instance from the environment.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// Close closes the underlying docker client connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// CheckDaemon verifies that the Docker daemon is running and reachable.
func (c *Client) CheckDaemon(ctx context.Context) error {
	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}
	return nil
}

// CheckImage reports whether imageRef exists locally.
func (c *Client) CheckImage(ctx context.Context, imageRef string) (bool, error) {
	images, err := c.api.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}

	// No tag means :latest
	normalizedRef := imageRef
	if !strings.Contains(imageRef, ":") {
		normalizedRef = imageRef + ":latest"
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageRef || tag == normalizedRef {
				return true, nil
			}
		}
		if imageRef == img.ID || (len(img.ID) >= 12 && len(imageRef) >= 12 && imageRef == img.ID[:12]) {
			return true, nil
		}
	}
	return false, nil
}

// PullImage pulls imageRef and fails on the first error message in the
// progress stream.
func (c *Client) PullImage(ctx context.Context, imageRef string) error {
	reader, err := c.api.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	for {
		var msg jsonmessage.JSONMessage
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pull of %s interrupted: %w", imageRef, err)
		}
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to decode pull progress: %w", err)
		}
		if msg.Error != nil {
			return fmt.Errorf("pull failed: %s", msg.Error.Message)
		}
	}
	return nil
}

// ContainerOptions configures the long-lived measurement container.
type ContainerOptions struct {
	Image    string
	Workdir  string   // bind-mounted at /workspace when set
	Env      []string
	GPUs     bool     // request all GPUs from the nvidia runtime
	Platform *specs.Platform
}

// StartContainer creates and starts an idle container and returns its ID.
func (c *Client) StartContainer(ctx context.Context, opts ContainerOptions) (string, error) {
	hostConfig := &container.HostConfig{}
	if opts.Workdir != "" {
		hostConfig.Binds = []string{fmt.Sprintf("%s:/workspace", opts.Workdir)}
	}
	if opts.GPUs {
		hostConfig.DeviceRequests = []container.DeviceRequest{{
			Count:        -1,
			Capabilities: [][]string{{"gpu"}},
		}}
	}

	resp, err := c.api.ContainerCreate(ctx,
		&container.Config{
			Image:      opts.Image,
			Tty:        true,
			OpenStdin:  true,
			WorkingDir: "/workspace",
			Env:        opts.Env,
			Cmd:        []string{"/bin/sh"},
		},
		hostConfig, nil, opts.Platform, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := c.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}
	return resp.ID, nil
}

// ExecResult is the outcome of a command run inside a container.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec runs cmd inside containerID and waits for it to finish.
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error) {
	respID, err := c.api.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to create exec: %w", err)
	}

	resp, err := c.api.ContainerExecAttach(ctx, respID.ID, container.ExecStartOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer resp.Close()

	// Tty is off, so the stream is multiplexed.
	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, resp.Reader); err != nil {
		return ExecResult{}, fmt.Errorf("failed to copy exec output: %w", err)
	}

	inspect, err := c.api.ContainerExecInspect(ctx, respID.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to inspect exec: %w", err)
	}
	return ExecResult{Stdout: outBuf.String(), Stderr: errBuf.String(), ExitCode: inspect.ExitCode}, nil
}

// StopContainer stops and removes the container.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	// Removal is forced, so a failed stop is not fatal.
	_ = c.api.ContainerStop(ctx, containerID, container.StopOptions{})
	return c.api.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

// ParsePlatform parses "os/arch[/variant]". An empty string yields nil.
func ParsePlatform(s string) (*specs.Platform, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid platform %q (want os/arch[/variant])", s)
	}
	p := &specs.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	return p, nil
}
