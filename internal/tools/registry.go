// Package tools provides the tool adapter boundary the engine invokes
// plan steps against, plus a small set of built-in adapters.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"majordomo/internal/logging"
)

// Tool is one external capability a plan step can invoke.
type Tool interface {
	// Name is the action string steps reference.
	Name() string
	// Description is shown to the planner when composing plans.
	Description() string
	// Execute performs the action and returns a short output preview.
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// Registry maps action names to tools. Registries are constructed
// explicitly and passed by handle; there is no process-wide default.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the old tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	logging.Tools("registered tool: %s", t.Name())
}

// Get returns the tool for an action name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a planner-facing catalog of the registered tools,
// one "name: description" line per tool, sorted by name.
func (r *Registry) Describe() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Name(), t.Description()))
	}
	sort.Strings(lines)
	return lines
}

// Execute looks up and runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	timer := logging.StartTimer(logging.CategoryTools, name)
	defer timer.Stop()

	out, err := t.Execute(ctx, params)
	if err != nil {
		logging.ToolsError("%s failed: %v", name, err)
	}
	return out, err
}
