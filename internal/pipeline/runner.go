package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/plantops/edgeagent-go/pkg/pipeline"
)

// Runner executes step lists sequentially with short-circuit failure
// semantics and process-lifetime memoization of Once steps.
//
// Memoization state is keyed by step name and shared across runs of the
// same Runner, so a handler should hold one Runner for its lifetime. The
// step list itself is passed per run: handlers assemble it conditionally
// from configuration on every invocation.
type Runner struct {
	log zerolog.Logger

	mu        sync.Mutex
	succeeded map[string]bool // Once steps that have already succeeded
}

// NewRunner creates a Runner logging through log.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		log:       log,
		succeeded: make(map[string]bool),
	}
}

// Run executes steps in order under the given handler name, stopping at
// the first failure. The aggregate outcome is logged and returned; steps
// after a failure are recorded as skipped.
func (r *Runner) Run(ctx context.Context, handler string, steps []pipeline.Step) pipeline.Invocation {
	inv := pipeline.Invocation{
		Handler: handler,
		Steps:   make([]pipeline.StepResult, 0, len(steps)),
		OK:      true,
	}

	for _, step := range steps {
		result := pipeline.StepResult{Name: step.Name}

		switch {
		case !inv.OK:
			result.Skipped = true

		case step.Once && r.alreadySucceeded(step.Name):
			result.Memoized = true
			r.log.Debug().Str("handler", handler).Str("step", step.Name).
				Msg("step already satisfied, skipping")

		default:
			result.Err = r.runStep(ctx, step)
			if result.Err != nil {
				inv.OK = false
				inv.FailedStep = step.Name
				r.log.Error().Err(result.Err).Str("handler", handler).
					Str("step", step.Name).Msg("step failed")
			} else if step.Once {
				r.markSucceeded(step.Name)
			}
		}

		inv.Steps = append(inv.Steps, result)
	}

	if inv.OK {
		r.log.Info().Str("handler", handler).Int("steps", len(steps)).
			Msg("all steps successful")
	} else {
		r.log.Warn().Str("handler", handler).Str("failed_step", inv.FailedStep).
			Msg("handler failed")
	}
	return inv
}

// runStep invokes one step, converting any panic to a failure so a
// misbehaving step cannot kill the delivery thread.
func (r *Runner) runStep(ctx context.Context, step pipeline.Step) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name, rec)
		}
	}()
	return step.Run(ctx)
}

func (r *Runner) alreadySucceeded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded[name]
}

func (r *Runner) markSucceeded(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded[name] = true
}
