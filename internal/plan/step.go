package plan

import (
	"context"
	"time"
)

// Backoff selects the delay progression between retry attempts.
type Backoff int

const (
	// BackoffFixed keeps the same delay between attempts.
	BackoffFixed Backoff = iota
	// BackoffExponential doubles the delay between attempts.
	BackoffExponential
)

// RetryPolicy bounds the attempt budget for a step. MaxAttempts counts
// total invocations: 1 means no retry.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     Backoff
}

// NoRetry is the policy for steps whose failure should not be retried.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// Probe reports whether a condition currently holds. Probes are used
// both as already-satisfied prechecks and as readiness waits.
type Probe func(ctx context.Context) (bool, error)

// Step is one unit of work in a plan. Exactly one of Command, Wait, or
// Do is set:
//
//   - Command is an external tool invocation (argv form).
//   - Wait is a readiness probe polled at a fixed interval until the
//     step timeout.
//   - Do is an in-process action (file writes, typed API calls).
//
// Criticality is declared at plan-construction time: a failed critical
// step aborts the plan, a failed optional step downgrades to a warning
// and the plan continues.
type Step struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Retry    RetryPolicy

	Command []string
	Wait    Probe
	Do      func(ctx context.Context) error

	// Check, when set, is evaluated before Command/Do; if the condition
	// already holds the step is classified AlreadySatisfied and skipped.
	Check Probe

	// LogFile, when set, receives the captured output of a Command step
	// under the state directory.
	LogFile string
}

// Plan is a totally ordered sequence of steps toward a target state.
// Steps execute strictly sequentially; later steps causally depend on
// earlier ones.
type Plan struct {
	Intent Intent
	Steps  []Step
}

// Mutating reports whether the plan contains any step at all; a Status
// plan is always empty.
func (p *Plan) Mutating() bool {
	return len(p.Steps) > 0
}
