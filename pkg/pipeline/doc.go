// Package pipeline defines the step-execution model used by the edge
// agent's message handlers.
//
// A handler's work is an ordered list of named Steps. Steps run
// sequentially and short-circuit: the first failure aborts all remaining
// steps in that run. A step never propagates a panic; the runner converts
// panics to failures at the boundary.
//
// A Step marked Once is memoized on success: after its first successful
// run it is skipped for the remaining process lifetime and reported as an
// immediate success. This models idempotent setup actions such as "ensure
// the remote log directory exists", trading re-verification for reduced
// latency on the hot path.
//
// There is no retry inside a pipeline. Execution is at-most-once per
// inbound message; retry, if desired, arrives with the next trigger.
package pipeline
