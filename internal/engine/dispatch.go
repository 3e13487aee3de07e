package engine

import (
	"context"
	"fmt"
	"time"

	"autofy/backend/pkg/models"
)

// DefaultStepTimeout bounds a single adapter invocation when no timeout is
// configured. Expiry is reported as an ordinary failed outcome.
const DefaultStepTimeout = 30 * time.Second

// Dispatcher turns a declarative step into an outcome. It resolves the step's
// credential and adapter, invokes the adapter under a bounded timeout, and
// guarantees it never returns an error or panics: every failure mode becomes
// a failed Outcome.
type Dispatcher struct {
	registry    *Registry
	stepTimeout time.Duration
}

// NewDispatcher creates a Dispatcher over the given registry. A zero timeout
// falls back to DefaultStepTimeout.
func NewDispatcher(registry *Registry, stepTimeout time.Duration) *Dispatcher {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Dispatcher{registry: registry, stepTimeout: stepTimeout}
}

// Dispatch executes one step with the current run context. No adapter is
// invoked when the step's credential is missing or its capability is not
// registered.
func (d *Dispatcher) Dispatch(ctx context.Context, step models.Step, creds CredentialResolver, runContext map[string]interface{}) Outcome {
	cred, ok := creds.Find(step.App, step.AccountEmail)
	if !ok {
		return Outcome{
			Success: false,
			Message: fmt.Sprintf("%s account (%s) not connected. Please reconnect in workspace.", step.App, step.AccountEmail),
		}
	}

	adapter, ok := d.registry.Resolve(step.App, step.Event)
	if !ok {
		if d.registry.HasApp(step.App) {
			return Outcome{Success: false, Message: fmt.Sprintf("unsupported %s event: %s", step.App, step.Event)}
		}
		return Outcome{Success: false, Message: fmt.Sprintf("unsupported app: %s", step.App)}
	}

	return d.invoke(ctx, adapter, cred, step, runContext)
}

// invoke runs the adapter with a deadline. A panicking or hung adapter is
// converted to a failed outcome so a run can never take the process down or
// block forever.
func (d *Dispatcher) invoke(ctx context.Context, adapter Adapter, cred models.ConnectedApp, step models.Step, runContext map[string]interface{}) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.stepTimeout)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome{Success: false, Message: fmt.Sprintf("step %s/%s panicked: %v", step.App, step.Event, r)}
			}
		}()
		done <- adapter.Invoke(ctx, cred, step.Config, runContext)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-ctx.Done():
		return Outcome{
			Success: false,
			Message: fmt.Sprintf("step %s/%s did not finish within %s: %v", step.App, step.Event, d.stepTimeout, ctx.Err()),
		}
	}
}
