package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"convbench/internal/benchmark"
	"convbench/internal/conv"
	"convbench/internal/db"
	"convbench/internal/notify"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)
	// Mock exit
	oldExit := exit
	exit = func(code int) {
		if code != 0 {
			panic(fmt.Sprintf("exit-%d", code))
		}
	}
	defer func() { exit = oldExit }()
	defer func() {
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "exit-") {
				return
			}
			panic(r)
		}
	}()
	root.SetArgs(args)
	b := new(bytes.Buffer)
	root.SetOut(b)
	root.SetErr(b)
	root.SetIn(bytes.NewBufferString(""))
	err := root.Execute()
	return b.String(), err
}

// resetFlags resets all flags to their default values.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setConfig overrides a config key for the duration of the test.
func setConfig(t *testing.T, key string, value any) {
	t.Helper()
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, nil) })
}

// fakeBackend reports F/100 ms for every convolution, or fails for the
// output channel counts listed in fail.
type fakeBackend struct {
	mu    sync.Mutex
	calls []conv.Params
	fail  map[int]error
}

func (f *fakeBackend) Measure(ctx context.Context, p conv.Params) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()
	if err := f.fail[p.F]; err != nil {
		return "", err
	}
	return fmt.Sprintf("algo 1\nbest time %.4f ms\n", float64(p.F)/100), nil
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

// withFakes swaps every factory for an in-memory fake and returns the
// backend and notifier.
func withFakes(t *testing.T) (*fakeBackend, *fakeNotifier) {
	t.Helper()
	backend := &fakeBackend{}
	notifier := &fakeNotifier{}
	storePath := filepath.Join(t.TempDir(), "history.json")

	oldBackend, oldStore, oldNotifier, oldCommit := backendFactory, storeFactory, notifierFactory, gitCommit
	backendFactory = func(ctx context.Context) (benchmark.Backend, func(), error) {
		return backend, func() {}, nil
	}
	storeFactory = func() (db.Store, error) {
		return db.NewStore(db.StoreConfig{Type: "file", ConnectionString: storePath})
	}
	notifierFactory = func() (notify.Notifier, error) { return notifier, nil }
	gitCommit = func() (string, error) { return "abc1234", nil }
	t.Cleanup(func() {
		backendFactory, storeFactory, notifierFactory, gitCommit = oldBackend, oldStore, oldNotifier, oldCommit
	})
	return backend, notifier
}
