package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"convbench/internal/benchmark"
	"convbench/internal/db"
	"convbench/internal/tuning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	backend, _ := withFakes(t)

	out, err := executeCommand(rootCmd, "run", "--save", "--no-color")
	require.NoError(t, err)
	assert.Len(t, backend.calls, 4)
	assert.Contains(t, out, "origin")
	assert.Contains(t, out, "gconv-11x32")
	// origin = 2 * (1.92 + 1.60), opt = min(1.92, 0.32)
	assert.Contains(t, out, "Speedup of opt over origin: 22.00x")
	assert.Contains(t, out, "Results saved as run")

	store, err := storeFactory()
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "abc1234", latest.Commit)
	origin, ok := latest.Result("origin")
	require.True(t, ok)
	assert.InDelta(t, 7.04, origin.Value, 1e-9)
}

func TestRunCommand_CompareAndNotify(t *testing.T) {
	_, notifier := withFakes(t)

	_, err := executeCommand(rootCmd, "run", "--save")
	require.NoError(t, err)

	out, err := executeCommand(rootCmd, "run", "--notify", "--fail-on-regression")
	require.NoError(t, err)
	assert.Contains(t, out, "Compared with run")
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "origin")
}

func TestRunCommand_SelectScenario(t *testing.T) {
	backend, _ := withFakes(t)

	out, err := executeCommand(rootCmd, "run", "opt", "--compare=false")
	require.NoError(t, err)
	assert.Len(t, backend.calls, 2)
	assert.NotContains(t, out, "Speedup")

	_, err = executeCommand(rootCmd, "run", "nope", "--compare=false")
	assert.ErrorContains(t, err, `unknown scenario "nope"`)
}

func TestRunCommand_BackendFailure(t *testing.T) {
	backend, _ := withFakes(t)
	backend.fail = map[int]error{32: benchmark.Execution("measure", errors.New("cudnn error"))}

	out, err := executeCommand(rootCmd, "run", "--save")
	require.Error(t, err)
	assert.ErrorIs(t, err, benchmark.ErrBackendExecution)
	assert.Contains(t, out, "Run incomplete")

	store, err := storeFactory()
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunCommand_HistoryStoreUnavailable(t *testing.T) {
	backend, _ := withFakes(t)
	storeFactory = func() (db.Store, error) {
		return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
	}

	out, err := executeCommand(rootCmd, "run")
	require.NoError(t, err)
	assert.Len(t, backend.calls, 4)
	assert.Contains(t, out, "Warning: skipping comparison")
	assert.Contains(t, out, "Speedup of opt over origin")

	_, err = executeCommand(rootCmd, "run", "--save")
	assert.ErrorContains(t, err, "failed to open history store")
}

func TestMeasureCommand(t *testing.T) {
	backend, _ := withFakes(t)

	out, err := executeCommand(rootCmd, "measure", "--c", "3072", "--h", "18", "--w", "18", "--f", "192", "--groups", "4")
	require.NoError(t, err)
	require.Len(t, backend.calls, 1)
	assert.Equal(t, 768, backend.calls[0].Cg)
	assert.Contains(t, out, "time: 1.9200 ms")
	assert.Contains(t, out, "GFLOP/s")
}

func TestMeasureCommand_PrintCommand(t *testing.T) {
	backend, _ := withFakes(t)

	out, err := executeCommand(rootCmd, "measure", "--c", "768", "--h", "18", "--w", "18", "--f", "160", "--print-command")
	require.NoError(t, err)
	assert.Empty(t, backend.calls)
	assert.True(t, strings.HasPrefix(out, "./conv "), out)
}

func TestMeasureCommand_InvalidParams(t *testing.T) {
	withFakes(t)

	_, err := executeCommand(rootCmd, "measure", "--c", "0", "--h", "18", "--w", "18", "--f", "160")
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("warmup\nbest time 0.4215 ms\n"), 0644))

	out, err := executeCommand(rootCmd, "parse", path)
	require.NoError(t, err)
	assert.Equal(t, "0.4215\n", out)

	require.NoError(t, os.WriteFile(path, []byte("elapsed: 3.5\n"), 0644))
	out, err = executeCommand(rootCmd, "parse", path, "--marker", "elapsed:")
	require.NoError(t, err)
	assert.Equal(t, "3.5\n", out)

	require.NoError(t, os.WriteFile(path, []byte("no timing here\n"), 0644))
	_, err = executeCommand(rootCmd, "parse", path)
	assert.ErrorIs(t, err, benchmark.ErrParse)
}

func TestWorkloadsCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "workloads")
	require.NoError(t, err)
	assert.Contains(t, out, "conv2d_layer")
	assert.Contains(t, out, "(cuda)")

	out, err = executeCommand(rootCmd, "workloads", `["conv2d_layer",1,18,18,384,1536,1,1,[1,1],[0,0],[1,1],2]`)
	require.NoError(t, err)
	assert.Contains(t, out, "workload: conv2d_layer")
	assert.Contains(t, out, "output: 18x18")

	_, err = executeCommand(rootCmd, "workloads", `["winograd",1]`)
	assert.Error(t, err)
}

func TestTunePlanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")

	out, err := executeCommand(rootCmd, "tune", "plan", "--plan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote plan with 2 tasks")
	assert.Contains(t, out, "nico2_v100_32@0.0.0.0:9190")

	plan, err := tuning.ReadPlan(path)
	require.NoError(t, err)
	assert.Len(t, plan.Tasks, 2)
	assert.Equal(t, 2049, plan.Options.NumMeasureTrials)
}

func TestTuneLaunchCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tuner.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"searching $1\"\n"), 0755))
	setConfig(t, "tuning.command", script)

	path := filepath.Join(dir, "plan.json")
	out, err := executeCommand(rootCmd, "tune", "launch", "--plan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "searching "+path)

	setConfig(t, "tuning.command", "")
	_, err = executeCommand(rootCmd, "tune", "launch", "--plan", path)
	assert.ErrorIs(t, err, benchmark.ErrBackendUnavailable)
}

func TestBestCommand(t *testing.T) {
	tasks, err := tuning.DefaultTasks()
	require.NoError(t, err)

	line := func(key, costs string, errNo string) string {
		quoted := strings.ReplaceAll(key, `"`, `\"`)
		return `{"i":[["` + quoted + `","cuda",[]],[]],"r":[` + costs + `,` + errNo + `,1.0,1605490000]}`
	}
	records := strings.Join([]string{
		line(tasks[0].Key, "[0.0004]", "0"),
		line(tasks[0].Key, "[0.0002,0.0002]", "0"),
		line(tasks[0].Key, "[0.0001]", "1"),
		line(tasks[1].Key, "[0.0003]", "0"),
	}, "\n")
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(records), 0644))

	out, err := executeCommand(rootCmd, "best", "--records", path)
	require.NoError(t, err)
	assert.Contains(t, out, "best: 0.2000 ms over 2 runs (line 2")
	assert.Contains(t, out, "best: 0.3000 ms over 1 runs")

	out, err = executeCommand(rootCmd, "best", "--records", path, "--key", tasks[1].Key)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "best:"))

	_, err = executeCommand(rootCmd, "best", "--records", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestHistoryAndReportCommands(t *testing.T) {
	withFakes(t)

	out, err := executeCommand(rootCmd, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved runs.")

	_, err = executeCommand(rootCmd, "report")
	assert.ErrorContains(t, err, "no saved runs")

	_, err = executeCommand(rootCmd, "run", "--save")
	require.NoError(t, err)
	_, err = executeCommand(rootCmd, "run", "--save")
	require.NoError(t, err)

	out, err = executeCommand(rootCmd, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "abc1234")

	out, err = executeCommand(rootCmd, "report", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| conv-192 |")

	out, err = executeCommand(rootCmd, "report", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "gconv-4x192")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "convbench")
}
