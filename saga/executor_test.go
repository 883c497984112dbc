package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStep tracks forward and undo invocations in a shared trace so
// tests can assert ordering across steps.
type recordingStep struct {
	name     StepName
	output   any
	failDo   error
	failUndo error
	trace    *[]string
}

func (s *recordingStep) Name() StepName { return s.name }

func (s *recordingStep) DoIt(_ context.Context, _ StepContext) (any, error) {
	*s.trace = append(*s.trace, "do:"+string(s.name))
	if s.failDo != nil {
		return nil, s.failDo
	}
	return s.output, nil
}

func (s *recordingStep) UndoIt(_ context.Context, _ StepContext) error {
	*s.trace = append(*s.trace, "undo:"+string(s.name))
	return s.failUndo
}

func buildPlan(t *testing.T, name SagaName, steps ...Step) *Plan {
	t.Helper()

	registry := NewRegistry()
	builder := NewPlanBuilder(name, registry)
	for _, step := range steps {
		require.NoError(t, builder.Append(step))
	}

	plan, err := builder.Build()
	require.NoError(t, err)
	return plan
}

func TestExecutorRunsStepsInOrder(t *testing.T) {
	var trace []string
	plan := buildPlan(t, "happy-path",
		&recordingStep{name: "first", output: "one", trace: &trace},
		&recordingStep{name: "second", output: 2, trace: &trace},
		&recordingStep{name: "third", output: "three", trace: &trace},
	)

	executor := NewExecutor(plan, NewSagaID(), NewMemoryStore())
	require.NoError(t, executor.Execute(context.Background()))

	assert.Equal(t, []string{"do:first", "do:second", "do:third"}, trace)
	assert.Equal(t, []StepName{"first", "second", "third"}, executor.CompletedSteps())

	out, ok := executor.Output("second")
	require.True(t, ok)
	assert.Equal(t, 2, out)
}

func TestExecutorCompensatesInReverseOrder(t *testing.T) {
	var trace []string
	boom := errors.New("payment gateway down")
	plan := buildPlan(t, "mid-failure",
		&recordingStep{name: "first", trace: &trace},
		&recordingStep{name: "second", trace: &trace},
		&recordingStep{name: "third", failDo: boom, trace: &trace},
	)

	executor := NewExecutor(plan, NewSagaID(), NewMemoryStore())
	err := executor.Execute(context.Background())

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, StepName("third"), abort.Step)
	assert.ErrorIs(t, err, boom)

	// Every completed step is compensated, most recent first. The failed step
	// itself is never compensated.
	assert.Equal(t, []string{
		"do:first", "do:second", "do:third",
		"undo:second", "undo:first",
	}, trace)
}

func TestExecutorReportsDoubleFault(t *testing.T) {
	var trace []string
	doErr := errors.New("repository creation failed")
	undoErr := errors.New("row is gone")
	plan := buildPlan(t, "double-fault",
		&recordingStep{name: "first", failUndo: undoErr, trace: &trace},
		&recordingStep{name: "second", trace: &trace},
		&recordingStep{name: "third", failDo: doErr, trace: &trace},
	)

	executor := NewExecutor(plan, NewSagaID(), NewMemoryStore())
	err := executor.Execute(context.Background())

	var rollback *RollbackError
	require.ErrorAs(t, err, &rollback)
	assert.ErrorIs(t, rollback.Cause, doErr)
	assert.ErrorIs(t, rollback.Compensation, undoErr)

	// A failing compensation does not stop the unwind; both undos ran.
	assert.Equal(t, []string{
		"do:first", "do:second", "do:third",
		"undo:second", "undo:first",
	}, trace)
}

func TestExecutorFirstStepFailureCompensatesNothing(t *testing.T) {
	var trace []string
	plan := buildPlan(t, "immediate-failure",
		&recordingStep{name: "first", failDo: errors.New("nope"), trace: &trace},
		&recordingStep{name: "second", trace: &trace},
	)

	executor := NewExecutor(plan, NewSagaID(), NewMemoryStore())
	err := executor.Execute(context.Background())

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, []string{"do:first"}, trace)
	assert.Empty(t, executor.CompletedSteps())
}

func TestExecutorPersistsTerminalStatus(t *testing.T) {
	store := NewMemoryStore()
	var trace []string

	id := NewSagaID()
	plan := buildPlan(t, "persisted",
		&recordingStep{name: "only", output: "done", trace: &trace},
	)
	executor := NewExecutor(plan, id, store)
	require.NoError(t, executor.Execute(context.Background()))

	state, err := store.Load(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, state.Status)
	require.Len(t, state.CompletedSteps, 1)
	assert.Equal(t, "only", state.CompletedSteps[0].Name)
	assert.JSONEq(t, `"done"`, string(state.CompletedSteps[0].Output))
}

func TestExecutorFromStateRollsBackCompletedSteps(t *testing.T) {
	store := NewMemoryStore()
	var trace []string

	steps := []Step{
		&recordingStep{name: "first", output: "a", trace: &trace},
		&recordingStep{name: "second", output: "b", trace: &trace},
	}
	plan := buildPlan(t, "recoverable", steps...)

	id := NewSagaID()
	executor := NewExecutor(plan, id, store)
	require.NoError(t, executor.Execute(context.Background()))

	state, err := store.Load(context.Background(), id.String())
	require.NoError(t, err)

	// Rebuild from the persisted state, as a fresh process would, and unwind.
	trace = trace[:0]
	reloaded, err := NewExecutorFromState(plan, state, store)
	require.NoError(t, err)

	require.NoError(t, reloaded.Rollback(context.Background()))
	assert.Equal(t, []string{"undo:second", "undo:first"}, trace)

	state, err = store.Load(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, StatusRolledBack, state.Status)
}

func TestExecutorRollbackWithoutCompletedSteps(t *testing.T) {
	plan := buildPlan(t, "empty-rollback",
		NewStepWithNoOpUndo("noop", func(context.Context, StepContext) (any, error) {
			return nil, nil
		}),
	)

	executor := NewExecutor(plan, NewSagaID(), NewMemoryStore())
	assert.Error(t, executor.Rollback(context.Background()))
}
