// Package engine executes workflows: it dispatches each step to the adapter
// registered for the step's (app, event) pair, threads the accumulated run
// context between steps, and records outcomes and counters on the workflow
// aggregate. It owns no HTTP surface and no persistence mechanics; the host
// hands it a loaded aggregate and a store to save it back to.
package engine

import (
	"context"
	"sync"

	"autofy/backend/pkg/models"
)

// Outcome is what one adapter invocation produced. Adapters convert every
// internal failure into a failed Outcome rather than returning an error.
type Outcome struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Adapter is the capability implementation for one (app, event) pair. It may
// perform external I/O but must never touch the workflow aggregate, and it
// must never panic across this boundary on its own behalf; the dispatcher
// still guards against it.
type Adapter interface {
	Invoke(ctx context.Context, cred models.ConnectedApp, config map[string]interface{}, runContext map[string]interface{}) Outcome
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, cred models.ConnectedApp, config map[string]interface{}, runContext map[string]interface{}) Outcome

func (f AdapterFunc) Invoke(ctx context.Context, cred models.ConnectedApp, config map[string]interface{}, runContext map[string]interface{}) Outcome {
	return f(ctx, cred, config, runContext)
}

// Capability identifies one registered adapter.
type Capability struct {
	App   string
	Event string
}

// Registry maps (app, event) pairs to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Capability]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Capability]Adapter)}
}

// Register installs an adapter for the given app and event, replacing any
// previous registration.
func (r *Registry) Register(app, event string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[Capability{App: app, Event: event}] = adapter
}

// Resolve returns the adapter for the given app and event.
func (r *Registry) Resolve(app, event string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[Capability{App: app, Event: event}]
	return adapter, ok
}

// HasApp reports whether any event is registered for the app. It lets the
// dispatcher distinguish an unknown app from an unknown event.
func (r *Registry) HasApp(app string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key := range r.adapters {
		if key.App == app {
			return true
		}
	}
	return false
}
