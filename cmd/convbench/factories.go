package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"convbench/internal/benchmark"
	"convbench/internal/config"
	"convbench/internal/db"
	"convbench/internal/docker"
	"convbench/internal/notify"

	"github.com/spf13/viper"
)

// Factories are variables so tests can swap in fakes.
var (
	backendFactory  = newBackend
	storeFactory    = newStore
	notifierFactory = notify.FromConfig
	gitCommit       = getGitCommit
)

// newBackend builds the configured measurement backend. The returned
// cleanup must be called when measuring is done.
func newBackend(ctx context.Context) (benchmark.Backend, func(), error) {
	layout, err := config.FlagLayout()
	if err != nil {
		return nil, nil, err
	}
	timeout := viper.GetDuration("backend.timeout")

	switch kind := viper.GetString("backend.kind"); kind {
	case "exec":
		b := benchmark.NewExecBackend(viper.GetString("backend.binary"))
		b.Dir = viper.GetString("backend.workdir")
		b.Flags = layout
		b.Logger = slog.Default()
		return benchmark.WithTimeout(b, timeout), func() {}, nil

	case "docker":
		platform, err := docker.ParsePlatform(viper.GetString("docker.platform"))
		if err != nil {
			return nil, nil, err
		}
		client, err := docker.NewClient()
		if err != nil {
			return nil, nil, benchmark.Unavailable("measure", err)
		}
		b := docker.NewBackend(client, docker.ContainerOptions{
			Image:    viper.GetString("docker.image"),
			Workdir:  viper.GetString("docker.workdir"),
			GPUs:     viper.GetBool("docker.gpus"),
			Platform: platform,
		}, viper.GetString("backend.binary"))
		b.Flags = layout
		b.Logger = slog.Default()

		cleanup := func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := b.Close(stopCtx); err != nil {
				slog.Warn("Failed to remove measurement container", "error", err)
			}
			client.Close()
		}
		return benchmark.WithTimeout(b, timeout), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}

func newStore() (db.Store, error) {
	cfg := db.StoreConfig{Type: viper.GetString("store.type")}
	if strings.EqualFold(cfg.Type, "postgres") {
		cfg.ConnectionString = viper.GetString("store.dsn")
	} else {
		cfg.ConnectionString = viper.GetString("store.path")
	}
	return db.NewStore(cfg)
}

func getGitCommit() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func backendBinary() string {
	return viper.GetString("backend.binary")
}
