package saga

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is a registry of saga steps, keyed by StepName.
//
// Plans only record step names. When an execution log is reloaded from
// persistent storage, the concrete Step values have been erased and the only
// way to recover them is by name, so every step used in a plan is registered
// here (PlanBuilder.Append does this automatically).
type Registry struct {
	steps *xsync.MapOf[StepName, Step]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		steps: xsync.NewMapOf[StepName, Step](),
	}
}

// Register adds a step to the registry.
func (r *Registry) Register(step Step) error {
	if _, ok := r.steps.Load(step.Name()); ok {
		return fmt.Errorf("step with name %q already registered", step.Name())
	}
	r.steps.Store(step.Name(), step)
	return nil
}

// Get retrieves a step from the registry by its name.
func (r *Registry) Get(name StepName) (Step, error) {
	step, ok := r.steps.Load(name)
	if !ok {
		return nil, fmt.Errorf("step %q not found in registry", name)
	}
	return step, nil
}
