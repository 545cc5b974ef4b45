package tuning

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"convbench/internal/benchmark"
	"convbench/internal/conv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key384 = `["conv2d_layer",1,18,18,384,1536,1,1,[1,1],[0,0],[1,1],2]`

func TestDefaultTasks(t *testing.T) {
	tasks, err := DefaultTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, key384, tasks[0].Key)
	assert.Equal(t, "cuda", tasks[0].Target)
	assert.Equal(t, 768, tasks[0].Params.Cg)
	assert.Equal(t, 2, tasks[0].Params.Groups)
	assert.Equal(t, 320, tasks[1].Params.F)

	name, p, err := conv.Default.Parse(tasks[1].Key)
	require.NoError(t, err)
	assert.Equal(t, "conv2d_layer", name)
	assert.Equal(t, tasks[1].Params, p)
}

func TestNewTask_UnknownWorkload(t *testing.T) {
	p := conv.MustParams(1, 8, 4, 4, 8, 8, 1, 1, [2]int{}, [2]int{1, 1}, [2]int{1, 1}, 1)
	_, err := NewTask(conv.Default, "winograd", p, "")
	assert.ErrorIs(t, err, conv.ErrUnknownWorkload)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(2)
	assert.Equal(t, 2049, opts.NumMeasureTrials)
	assert.Equal(t, "nico2_v100_32@0.0.0.0:9190", opts.Runner.Address())
	assert.Equal(t, 300, opts.Runner.MinRepeatMs)
	assert.Equal(t, "gconv-1-nico1.json", opts.RecordFile)
	assert.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	opts := DefaultOptions(1)
	opts.NumMeasureTrials = 0
	opts.Runner.Port = 70000
	opts.Strategy = "random"

	err := opts.Validate()
	require.ErrorIs(t, err, ErrInvalidOptions)
	assert.Contains(t, err.Error(), "num_measure_trials must be positive")
	assert.Contains(t, err.Error(), "runner.port must be between 1 and 65535")
	assert.Contains(t, err.Error(), `strategy must be round-robin or gradient, got "random"`)
}

func TestPlan_WriteRead(t *testing.T) {
	tasks, err := DefaultTasks()
	require.NoError(t, err)
	plan, err := NewPlan(tasks, DefaultOptions(len(tasks)))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plans", "gconv.json")
	require.NoError(t, WritePlan(path, plan))

	got, err := ReadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, plan.Options, got.Options)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, key384, got.Tasks[0].Key)
	assert.Equal(t, plan.Tasks[0].Params, got.Tasks[0].Params)

	_, err = NewPlan(nil, DefaultOptions(0))
	assert.Error(t, err)

	bad := DefaultOptions(1)
	bad.RecordFile = ""
	_, err = NewPlan(tasks, bad)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func record(key string, costs string, errNo int) string {
	quoted := strings.ReplaceAll(key, `"`, `\"`)
	return `{"i":[["` + quoted + `","cuda -keys=cuda,gpu",[-1,16,64]],[[],[]]],"r":[` + costs + `,` +
		string(rune('0'+errNo)) + `,1.5,1605490000],"v":"v0.6"}`
}

func TestLoadRecords(t *testing.T) {
	spaced := `["conv2d_layer", 1, 18, 18, 384, 1536, 1, 1, [1, 1], [0, 0], [1, 1], 2]`
	input := strings.Join([]string{
		record(spaced, "[0.0004,0.0006]", 0),
		"",
		"not json",
		record(spaced, "[0.0002]", 0),
		record(spaced, "[0.0001]", 4),
		`{"i":[],"r":[]}`,
	}, "\n")

	records, skipped, err := LoadRecords(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, records, 3)
	assert.Equal(t, key384, records[0].Key)
	assert.Equal(t, "cuda -keys=cuda,gpu", records[0].Target)
	assert.InDelta(t, 0.0005, records[0].MeanCost(), 1e-12)
	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, 4, records[1].Line)
	assert.False(t, records[2].Valid())

	best, err := Best(records, spaced)
	require.NoError(t, err)
	assert.Equal(t, 4, best.Line)
	assert.InDelta(t, 0.2, best.MeanMillis(), 1e-9)

	_, err = Best(records, `["conv2d_layer",1,18,18,320,1536,1,1,[1,1],[0,0],[1,1],2]`)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLoadBest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gconv.json")
	data := record(key384, "[0.003]", 0) + "\n" + record(key384, "[0.001,0.002]", 0) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	best, err := LoadBest(path, key384)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, best.MeanMillis(), 1e-9)

	_, err = LoadBest(filepath.Join(t.TempDir(), "missing.json"), key384)
	assert.Error(t, err)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "tuner.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestLauncher(t *testing.T) {
	script := writeScript(t, `echo "tuning $1"`)
	var out strings.Builder
	l := &Launcher{Command: script, Stdout: &out}
	require.NoError(t, l.Launch(context.Background(), "plan.json"))
	assert.Equal(t, "tuning plan.json\n", out.String())
}

func TestLauncher_RelativeToDir(t *testing.T) {
	script := writeScript(t, `echo "tuning $1"`)
	var out strings.Builder
	l := &Launcher{Command: "./" + filepath.Base(script), Dir: filepath.Dir(script), Stdout: &out}
	require.NoError(t, l.Launch(context.Background(), "plan.json"))
	assert.Equal(t, "tuning plan.json\n", out.String())
}

func TestLauncher_Failures(t *testing.T) {
	err := (&Launcher{}).Launch(context.Background(), "plan.json")
	assert.ErrorIs(t, err, benchmark.ErrBackendUnavailable)

	err = (&Launcher{Command: "/nonexistent/tuner"}).Launch(context.Background(), "plan.json")
	assert.ErrorIs(t, err, benchmark.ErrBackendUnavailable)

	script := writeScript(t, `echo "rpc tracker unreachable" >&2; exit 2`)
	err = (&Launcher{Command: script}).Launch(context.Background(), "plan.json")
	assert.ErrorIs(t, err, benchmark.ErrBackendExecution)
	assert.Contains(t, err.Error(), "status 2")
	assert.Contains(t, err.Error(), "rpc tracker unreachable")
}
