// Package executor runs plan steps strictly sequentially, classifies
// each outcome, and applies the per-step retry and timeout policy. It
// is the only component that invokes external tools.
package executor

import "time"

// Classification is the executor's verdict on one step.
type Classification string

const (
	// Success means the step completed its effect.
	Success Classification = "success"
	// AlreadySatisfied means the step's precheck found its effect
	// already in place; nothing was executed.
	AlreadySatisfied Classification = "already-satisfied"
	// TransientFailure means an attempt failed in a way eligible for
	// retry. It only appears on intermediate attempts; an exhausted
	// attempt budget escalates to FatalFailure.
	TransientFailure Classification = "transient-failure"
	// FatalFailure means the step failed after retries or was
	// non-retryable by nature.
	FatalFailure Classification = "fatal-failure"
)

// StepResult is the outcome of one step. It exists only within executor
// scope and is never persisted.
type StepResult struct {
	Step           string
	Classification Classification
	ExitCode       int
	Stdout         string
	Stderr         string
	Attempts       int
	Elapsed        time.Duration
	Err            error
}
