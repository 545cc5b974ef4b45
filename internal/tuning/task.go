// Package tuning prepares work for the external schedule search service and
// reads back the measurement records it produces.
package tuning

import (
	"fmt"

	"convbench/internal/conv"
)

// DefaultTarget is the compilation target of the tuned workloads.
const DefaultTarget = "cuda"

// Task is one workload handed to the search driver.
type Task struct {
	Workload string      `json:"workload"`
	Key      string      `json:"key"`
	Args     []any       `json:"args"`
	Target   string      `json:"target"`
	Params   conv.Params `json:"params"`
}

// NewTask builds a task for p under the named workload of reg.
func NewTask(reg *conv.Registry, workload string, p conv.Params, target string) (Task, error) {
	args, err := reg.Args(workload, p)
	if err != nil {
		return Task{}, err
	}
	key, err := reg.Key(workload, p)
	if err != nil {
		return Task{}, err
	}
	if target == "" {
		target = DefaultTarget
	}
	return Task{Workload: workload, Key: key, Args: args, Target: target, Params: p}, nil
}

// DefaultTasks returns the two grouped pointwise convolutions that are
// tuned together: input 1x1536x18x18 split into two groups, producing 384
// and 320 output channels.
func DefaultTasks() ([]Task, error) {
	input := [4]int{1, 1536, 18, 18}
	kernels := [][4]int{
		{384, 768, 1, 1},
		{320, 768, 1, 1},
	}

	tasks := make([]Task, 0, len(kernels))
	for _, k := range kernels {
		p, err := conv.GroupedFrom(input, k, [2]int{0, 0}, [2]int{1, 1}, [2]int{1, 1}, 2)
		if err != nil {
			return nil, fmt.Errorf("kernel %v: %w", k, err)
		}
		task, err := NewTask(conv.Default, conv.Conv2DLayer.Name, p, DefaultTarget)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
