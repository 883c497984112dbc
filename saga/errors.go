package saga

import (
	"fmt"
)

// AbortError reports a saga that failed forward execution and was fully
// compensated: every completed step's undo ran successfully and no external
// resource created by the saga remains.
type AbortError struct {
	Saga  SagaName
	Step  StepName
	Cause error
}

// Error implements the error interface for AbortError.
func (e *AbortError) Error() string {
	return fmt.Sprintf("saga %q failed at step %q (rolled back): %v", e.Saga, e.Step, e.Cause)
}

// Unwrap returns the original step failure.
func (e *AbortError) Unwrap() error {
	return e.Cause
}

// RollbackError reports a double fault: the saga failed forward execution AND
// one or more compensations failed while unwinding. Resources may be orphaned
// and manual intervention is required. Both the original failure and the
// accumulated compensation errors are carried so neither is masked.
type RollbackError struct {
	Saga SagaName
	Step StepName
	// Cause is the forward failure that triggered the rollback.
	Cause error
	// Compensation aggregates every undo failure encountered during unwind.
	Compensation error
}

// Error implements the error interface for RollbackError.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("saga %q failed at step %q and rollback is incomplete: %v (compensation: %v)",
		e.Saga, e.Step, e.Cause, e.Compensation)
}

// Unwrap returns the original step failure. The compensation errors are only
// reachable through the Compensation field; the forward failure is the
// primary cause.
func (e *RollbackError) Unwrap() error {
	return e.Cause
}
