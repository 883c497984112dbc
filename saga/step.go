package saga

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/btree"
)

// Step is the building block of a saga: a forward action paired with a
// compensating undo action.
//
// DoIt returns the step's output, which is recorded under the step's name and
// made available to later steps through the StepContext. Outputs must be
// JSON-serializable so that an execution log can be persisted and reloaded.
//
// UndoIt reverses a completed DoIt. It is never invoked for a step whose
// forward action did not complete.
type Step interface {
	Name() StepName
	DoIt(ctx context.Context, sc StepContext) (any, error)
	UndoIt(ctx context.Context, sc StepContext) error
}

// StepContext provides a step access to the outputs of the steps that ran
// before it.
type StepContext struct {
	Saga    SagaID
	Outputs *btree.Map[StepName, any]
}

// Lookup retrieves the output of a previously completed step by name.
func (sc StepContext) Lookup(name StepName) (any, bool) {
	if sc.Outputs == nil {
		return nil, false
	}
	return sc.Outputs.Get(name)
}

// LookupTyped retrieves the output of a previously completed step with a type
// assertion. Outputs restored from a persisted execution log are stored as
// json.RawMessage and are unmarshaled into R here.
func LookupTyped[R any](sc StepContext, name StepName) (R, bool) {
	var zero R
	value, found := sc.Lookup(name)
	if !found {
		return zero, false
	}

	if typed, ok := value.(R); ok {
		return typed, true
	}

	if raw, ok := value.(json.RawMessage); ok {
		var result R
		if err := json.Unmarshal(raw, &result); err == nil {
			return result, true
		}
	}

	return zero, false
}

// DoFunc is the forward half of a step.
type DoFunc func(ctx context.Context, sc StepContext) (any, error)

// UndoFunc is the compensating half of a step.
type UndoFunc func(ctx context.Context, sc StepContext) error

// StepFunc is a Step implemented by a pair of ordinary functions.
type StepFunc struct {
	name StepName
	do   DoFunc
	undo UndoFunc
}

// NewStep constructs a StepFunc from a forward function and its compensation.
func NewStep(name StepName, do DoFunc, undo UndoFunc) *StepFunc {
	return &StepFunc{name: name, do: do, undo: undo}
}

// NoOpUndo is an UndoFunc for steps with nothing to compensate.
func NoOpUndo(_ context.Context, _ StepContext) error {
	return nil
}

// NewStepWithNoOpUndo constructs a StepFunc whose compensation does nothing.
// Use it for steps whose effects are undone transitively by an earlier step's
// compensation (e.g. deleting an organization also deletes its repositories).
func NewStepWithNoOpUndo(name StepName, do DoFunc) *StepFunc {
	return NewStep(name, do, NoOpUndo)
}

// Name implements the Step interface for StepFunc.
func (sf *StepFunc) Name() StepName {
	return sf.name
}

// DoIt implements the Step interface for StepFunc. The output is round-tripped
// through a serializability check so a broken output surfaces at the step that
// produced it rather than at persistence time.
func (sf *StepFunc) DoIt(ctx context.Context, sc StepContext) (any, error) {
	out, err := sf.do(ctx, sc)
	if err != nil {
		return nil, err
	}

	if _, err := json.Marshal(out); err != nil {
		return nil, fmt.Errorf("step %q produced unserializable output: %w", sf.name, err)
	}

	return out, nil
}

// UndoIt implements the Step interface for StepFunc.
func (sf *StepFunc) UndoIt(ctx context.Context, sc StepContext) error {
	return sf.undo(ctx, sc)
}

// String implements the fmt.Stringer interface for StepFunc.
func (sf *StepFunc) String() string {
	return fmt.Sprintf("StepFunc(%s)", sf.name)
}
