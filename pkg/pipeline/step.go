package pipeline

import "context"

// Step is one ordered, side-effecting unit of work within a handler's
// execution. A nil error from Run means success.
type Step struct {
	// Name identifies the step in logs and invocation records. Names must
	// be unique within a runner for Once steps, since memoization is
	// keyed by name.
	Name string

	// Run executes the step's work. The context carries no deadline from
	// the pipeline itself; any timeout belongs to the external operation
	// the step performs.
	Run func(ctx context.Context) error

	// Once marks the step memoize-on-success: after its first success it
	// is never executed again for the process lifetime, and subsequent
	// runs report it as succeeded without running Run.
	Once bool
}

// StepResult is the recorded outcome of one step within an invocation.
type StepResult struct {
	// Name is the step's name.
	Name string

	// Err is the step's failure, nil on success. A recovered panic is
	// reported here as an error.
	Err error

	// Skipped is true when an earlier failure short-circuited the run
	// before this step executed.
	Skipped bool

	// Memoized is true when a Once step was satisfied from its earlier
	// success without executing.
	Memoized bool
}

// Invocation is the ephemeral record of one pipeline run. It exists for
// the duration of one message's processing and for logging; it is not
// persisted.
type Invocation struct {
	// Handler is the name the pipeline was run under.
	Handler string

	// Steps holds the ordered per-step outcomes.
	Steps []StepResult

	// FailedStep is the name of the first failing step, empty on success.
	FailedStep string

	// OK is true when every executed step succeeded.
	OK bool
}
