package conv

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownWorkload is returned when a workload name has no definition.
	ErrUnknownWorkload = errors.New("unknown workload")

	// ErrDuplicateWorkload is returned when a name is registered twice.
	ErrDuplicateWorkload = errors.New("workload already registered")
)

// Definition ties a workload name to the positional argument tuple the
// external search driver uses to rebuild the computation.
type Definition struct {
	Name string
	// Encode returns the positional arguments for p.
	Encode func(p Params) []any
	// Decode rebuilds Params from raw positional arguments.
	Decode func(args []json.RawMessage) (Params, error)
}

// Registry maps workload names to their definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Default holds the workloads known to this binary. It is populated once at
// package initialization.
var Default = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.Register(Conv2DLayer); err != nil {
		panic(err)
	}
	return r
}

// Register adds a definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.Encode == nil || def.Decode == nil {
		return fmt.Errorf("workload definition %q is incomplete", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateWorkload, def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownWorkload, name)
	}
	return def, nil
}

// Names lists registered workloads in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Args returns the positional tuple of workload name for p.
func (r *Registry) Args(name string, p Params) ([]any, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return def.Encode(p), nil
}

// Key returns the workload key, a JSON array of the name followed by the
// positional arguments.
func (r *Registry) Key(name string, p Params) (string, error) {
	args, err := r.Args(name, p)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(append([]any{name}, args...))
	if err != nil {
		return "", fmt.Errorf("failed to encode workload key: %w", err)
	}
	return string(data), nil
}

// Parse reverses Key.
func (r *Registry) Parse(key string) (string, Params, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(key), &raw); err != nil {
		return "", Params{}, fmt.Errorf("malformed workload key %q: %w", key, err)
	}
	if len(raw) == 0 {
		return "", Params{}, fmt.Errorf("malformed workload key %q: empty", key)
	}
	var name string
	if err := json.Unmarshal(raw[0], &name); err != nil {
		return "", Params{}, fmt.Errorf("malformed workload key %q: name: %w", key, err)
	}
	def, err := r.Lookup(name)
	if err != nil {
		return "", Params{}, err
	}
	p, err := def.Decode(raw[1:])
	if err != nil {
		return "", Params{}, fmt.Errorf("workload %s: %w", name, err)
	}
	return name, p, nil
}

// NormalizeKey re-encodes a workload key compactly so keys written by other
// tools with different whitespace compare equal.
func NormalizeKey(key string) (string, error) {
	var v any
	if err := json.Unmarshal([]byte(key), &v); err != nil {
		return "", fmt.Errorf("malformed workload key %q: %w", key, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
