package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry keeps the registered tasks and guards access with a RWMutex.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register validates and records a task.
func (r *Registry) Register(t Task) error {
	if err := validateTask(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name)
	}
	t.Params = append([]Param(nil), t.Params...)
	r.tasks[t.Name] = t
	return nil
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	return t, ok
}

// Tasks returns all registered tasks ordered by name.
func (r *Registry) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Run executes the named task. Parameters missing from rt.Args get their
// declared default. Errors from the action are returned unchanged.
func (r *Registry) Run(ctx context.Context, name string, rt *Runtime) error {
	t, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}

	args := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		args[p.Name] = p.Default
	}
	for k, v := range rt.Args {
		args[k] = v
	}
	run := *rt
	run.Args = args
	if run.Logger == nil {
		run.Logger = zap.NewNop()
	}

	run.Logger.Debug("running task",
		zap.String("task", name),
		zap.String("network", run.Network),
	)
	return t.Action(ctx, &run)
}

func validateTask(t Task) error {
	if strings.TrimSpace(t.Name) == "" || strings.ContainsAny(t.Name, " \t\n") {
		return fmt.Errorf("%w: name %q", ErrInvalidTask, t.Name)
	}
	if t.Action == nil {
		return fmt.Errorf("%w: %s has no action", ErrInvalidTask, t.Name)
	}
	seen := make(map[string]struct{}, len(t.Params))
	for _, p := range t.Params {
		if p.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed parameter", ErrInvalidTask, t.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %s declares parameter %s twice", ErrInvalidTask, t.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
