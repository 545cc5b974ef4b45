package tuning

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Plan is everything the external tuner needs for one session.
type Plan struct {
	CreatedAt time.Time `json:"created_at"`
	Tasks     []Task    `json:"tasks"`
	Options   Options   `json:"options"`
}

// NewPlan validates options and bundles them with tasks.
func NewPlan(tasks []Task, opts Options) (*Plan, error) {
	if len(tasks) == 0 {
		return nil, errors.New("plan has no tasks")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Plan{CreatedAt: time.Now().UTC(), Tasks: tasks, Options: opts}, nil
}

// WritePlan writes p as indented JSON to path, creating parent directories.
func WritePlan(path string, p *Plan) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// ReadPlan loads a plan written by WritePlan.
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan %s: %w", path, err)
	}
	return &p, nil
}
