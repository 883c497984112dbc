// Package saga implements distributed sagas: ordered sequences of forward
// steps, each paired with a compensating undo step.
//
// Sagas orchestrate a set of external operations that cannot share a commit
// protocol (database writes, Git hosting calls, secret-store calls). When a
// forward step fails, the executor unwinds every previously completed step in
// strict reverse order. For more on distributed sagas, see this 2017 JOTB talk
// by Caitie McCaffrey: https://www.youtube.com/watch?v=0UTOLRTwOX0
//
// Overview:
//
//  1. Define your steps: pair a forward function with an undo function using
//     NewStep (or NewStepWithNoOpUndo when there is nothing to undo).
//  2. Build a Plan with a PlanBuilder, appending steps in execution order.
//     Steps are registered in the builder's Registry so a persisted execution
//     can be re-bound to its code after a restart.
//  3. Run the Plan with an Executor. Outputs of completed steps are available
//     to later steps (and to undo functions) through the StepContext.
//  4. Give the Executor a Store so each completed step is recorded durably;
//     NewExecutorFromState can then reload a wedged execution and force its
//     compensation.
//
// The executor carries no retry policy. Transient-failure handling belongs to
// whoever supplies the step functions.
package saga
