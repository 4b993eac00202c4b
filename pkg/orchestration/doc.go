// Package orchestration runs named sequences of steps against capability
// providers.
//
// A Workflow is pure data: an ordered list of Steps, a FailureMode and a
// RetryPolicy. Each step may be skipped by a Predicate, derives its input
// from the original request and the outcomes of earlier steps, and
// delegates its work to a Provider resolved through a Registry.
//
// In Strict mode the first terminal failure stops the run and every earlier
// successful step that declares a Compensation is undone, newest first. In
// Lenient mode failures are recorded and the run ends with an
// AggregateReport scoring the outcomes.
//
// Runs are independent: each owns its ExecutionContext, and a single
// Orchestrator may execute many runs concurrently.
package orchestration
