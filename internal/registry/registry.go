package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/stagechain/internal/config"
	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
)

// Env carries the process-level resources an action may use.
type Env struct {
	// Out receives anything an action prints.
	Out io.Writer
}

// ActionFactory builds the work for one stage from its arguments.
type ActionFactory func(args Args, env Env) (dag.Work, error)

// Module is the interface that all action modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps action names to their factories.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFactory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{actions: make(map[string]ActionFactory)}
}

// RegisterAction registers a factory under name. Registering the same name
// twice is a programmer error and panics.
func (r *Registry) RegisterAction(name string, factory ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action with name '%s' already registered", name))
	}
	slog.Debug("Registering action.", "name", name)
	r.actions[name] = factory
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (ActionFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.actions[name]
	return f, ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Instantiate resolves a stage's action and builds its work.
func (r *Registry) Instantiate(ctx context.Context, stage *config.Stage, env Env) (dag.Work, error) {
	logger := ctxlog.FromContext(ctx)

	factory, ok := r.Lookup(stage.Action)
	if !ok {
		return nil, fmt.Errorf("stage '%s' (%s): unknown action '%s'", stage.Name, stage.Source, stage.Action)
	}

	work, err := factory(Args(stage.Arguments), env)
	if err != nil {
		return nil, fmt.Errorf("stage '%s' (%s): action '%s': %w", stage.Name, stage.Source, stage.Action, err)
	}
	if work == nil {
		return nil, fmt.Errorf("stage '%s' (%s): action '%s' produced no work", stage.Name, stage.Source, stage.Action)
	}

	logger.Debug("Stage action instantiated.", "stage", stage.Name, "action", stage.Action)
	return work, nil
}
