package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/btree"
)

// Executor runs a Plan's steps in order and unwinds them in strict reverse
// order on failure.
//
// All compensations are attempted even when one of them fails; compensation
// errors are accumulated and reported as a RollbackError (a double fault)
// carrying both the original failure and the compensation failures. A failure
// whose rollback completed cleanly is reported as an AbortError.
type Executor struct {
	plan  *Plan
	id    SagaID
	store Store

	outputs   *btree.Map[StepName, any]
	completed []StepName
	log       *Log
	syslog    *logrus.Entry
	startedAt time.Time
}

// NewExecutor creates an executor for one run of plan. Each completed step is
// recorded in store so the execution can be force-compensated after a crash.
func NewExecutor(plan *Plan, id SagaID, store Store) *Executor {
	return &Executor{
		plan:      plan,
		id:        id,
		store:     store,
		outputs:   btree.NewMap[StepName, any](8),
		completed: make([]StepName, 0, plan.Len()),
		log:       NewLog(id),
		syslog: logrus.WithFields(logrus.Fields{
			"component": "saga",
			"saga":      plan.SagaName,
			"saga-id":   id.String(),
		}),
		startedAt: time.Now(),
	}
}

// Execute runs the saga. On success it returns nil and every step's output is
// available through Output. On failure it compensates completed steps in
// reverse order and returns an *AbortError or, if any compensation failed, a
// *RollbackError.
func (e *Executor) Execute(ctx context.Context) error {
	order, err := e.plan.StepNames()
	if err != nil {
		return err
	}

	if err := e.persistState(ctx, StatusRunning); err != nil {
		return fmt.Errorf("failed to save initial saga state: %w", err)
	}

	for _, name := range order {
		if stepErr := e.executeStep(ctx, name); stepErr != nil {
			e.persistStateBestEffort(ctx, StatusRollingBack)

			compErr := e.compensate(ctx)
			if compErr != nil {
				e.persistStateBestEffort(ctx, StatusWedged)
				return &RollbackError{
					Saga:         e.plan.SagaName,
					Step:         name,
					Cause:        stepErr,
					Compensation: compErr,
				}
			}

			e.persistStateBestEffort(ctx, StatusAborted)
			return &AbortError{Saga: e.plan.SagaName, Step: name, Cause: stepErr}
		}

		e.persistStateBestEffort(ctx, StatusRunning)
	}

	e.persistStateBestEffort(ctx, StatusCompleted)
	return nil
}

// Output returns the recorded output of a completed step.
func (e *Executor) Output(name StepName) (any, bool) {
	return e.outputs.Get(name)
}

// CompletedSteps returns the names of completed steps in execution order.
func (e *Executor) CompletedSteps() []StepName {
	return append([]StepName(nil), e.completed...)
}

// Log returns the execution log.
func (e *Executor) Log() *Log {
	return e.log
}

func (e *Executor) stepContext() StepContext {
	return StepContext{Saga: e.id, Outputs: e.outputs}
}

func (e *Executor) executeStep(ctx context.Context, name StepName) error {
	step, err := e.plan.registry.Get(name)
	if err != nil {
		return err
	}

	e.record(&StepEvent{SagaID: e.id, Step: name, EventType: EventStarted})
	e.syslog.WithField("step", name).Debug("executing step")

	out, err := step.DoIt(ctx, e.stepContext())
	if err != nil {
		e.record(&StepEvent{SagaID: e.id, Step: name, EventType: EventFailed})
		e.syslog.WithField("step", name).WithError(err).Warn("step failed")
		return fmt.Errorf("step %q failed: %w", name, err)
	}

	e.record(&StepEvent{SagaID: e.id, Step: name, EventType: EventSucceeded})
	e.outputs.Set(name, out)
	e.completed = append(e.completed, name)
	return nil
}

// compensate undoes completed steps in reverse order. Every compensation is
// attempted regardless of earlier compensation failures; the accumulated
// errors (if any) are returned.
func (e *Executor) compensate(ctx context.Context) error {
	var result *multierror.Error

	for i := len(e.completed) - 1; i >= 0; i-- {
		name := e.completed[i]
		if err := e.undoStep(ctx, name); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (e *Executor) undoStep(ctx context.Context, name StepName) error {
	step, err := e.plan.registry.Get(name)
	if err != nil {
		return fmt.Errorf("step %q not found during undo: %w", name, err)
	}

	e.record(&StepEvent{SagaID: e.id, Step: name, EventType: EventUndoStarted})
	e.syslog.WithField("step", name).Debug("compensating step")

	if err := step.UndoIt(ctx, e.stepContext()); err != nil {
		e.record(&StepEvent{SagaID: e.id, Step: name, EventType: EventUndoFailed})
		e.syslog.WithField("step", name).WithError(err).Error("compensation failed")
		return fmt.Errorf("undo of step %q failed: %w", name, err)
	}

	e.record(&StepEvent{SagaID: e.id, Step: name, EventType: EventUndoFinished})
	return nil
}

// Rollback force-compensates all completed steps. It is used to deprovision
// resources after a successful execution, or on an executor reloaded from a
// persisted state (NewExecutorFromState) to unwind a wedged saga.
func (e *Executor) Rollback(ctx context.Context) error {
	if len(e.completed) == 0 {
		return fmt.Errorf("no completed steps to roll back")
	}

	e.persistStateBestEffort(ctx, StatusRollingBack)

	err := e.compensate(ctx)
	if err != nil {
		e.persistStateBestEffort(ctx, StatusWedged)
		return err
	}

	e.persistStateBestEffort(ctx, StatusRolledBack)
	return nil
}

// record appends to the in-memory log. A record failure means the executor
// emitted an event that is illegal for the step's current status, which is a
// bug here, not in the caller's steps.
func (e *Executor) record(event *StepEvent) {
	if err := e.log.Record(event); err != nil {
		e.syslog.WithError(err).Error("failed to record saga log event")
	}
}

func (e *Executor) persistState(ctx context.Context, status string) error {
	completed := make([]CompletedStep, 0, len(e.completed))
	for _, name := range e.completed {
		cs := CompletedStep{Name: string(name)}

		if val, ok := e.outputs.Get(name); ok && val != nil {
			data, err := json.Marshal(val)
			if err != nil {
				return fmt.Errorf("failed to marshal output of step %q: %w", name, err)
			}
			cs.Output = data
		}

		completed = append(completed, cs)
	}

	state := State{
		SagaID:         e.id.String(),
		SagaName:       e.plan.SagaName.String(),
		Status:         status,
		CompletedSteps: completed,
		CreatedAt:      e.startedAt,
	}

	return e.store.Save(ctx, e.id.String(), state)
}

// persistStateBestEffort logs persistence failures instead of letting them
// interrupt execution or compensation; the in-memory saga remains correct
// even when the durable record lags.
func (e *Executor) persistStateBestEffort(ctx context.Context, status string) {
	if err := e.persistState(ctx, status); err != nil {
		e.syslog.WithError(err).Warn("failed to persist saga state")
	}
}

// NewExecutorFromState rebuilds an executor from a persisted execution state
// so that its completed steps can be force-compensated. Step outputs are
// restored as json.RawMessage; undo functions recover them via LookupTyped.
func NewExecutorFromState(plan *Plan, state *State, store Store) (*Executor, error) {
	id := SagaID{}
	if err := id.UUID.UnmarshalText([]byte(state.SagaID)); err != nil {
		return nil, fmt.Errorf("invalid saga ID %q: %w", state.SagaID, err)
	}

	e := &Executor{
		plan:      plan,
		id:        id,
		store:     store,
		outputs:   btree.NewMap[StepName, any](8),
		completed: make([]StepName, 0, len(state.CompletedSteps)),
		log:       NewLog(id),
		syslog: logrus.WithFields(logrus.Fields{
			"component": "saga",
			"saga":      plan.SagaName,
			"saga-id":   state.SagaID,
		}),
		startedAt: state.CreatedAt,
	}

	for _, cs := range state.CompletedSteps {
		name := StepName(cs.Name)
		if _, err := plan.registry.Get(name); err != nil {
			return nil, fmt.Errorf("completed step %q not present in plan %q", cs.Name, plan.SagaName)
		}

		e.completed = append(e.completed, name)
		if cs.Output != nil {
			e.outputs.Set(name, cs.Output)
		}

		e.record(&StepEvent{SagaID: id, Step: name, EventType: EventStarted})
		e.record(&StepEvent{SagaID: id, Step: name, EventType: EventSucceeded})
	}

	return e, nil
}
