package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/fabriziosalmi/k8s/internal/plan"
	"github.com/fabriziosalmi/k8s/internal/util/retry"
)

// Executor runs plan steps strictly sequentially. Later steps causally
// depend on earlier ones, so there is no parallel execution.
type Executor struct {
	runner       Runner
	logDir       string
	pollInterval time.Duration
	logf         func(format string, v ...interface{})
}

// Option is a functional option for the executor.
type Option func(*Executor)

// WithLogDir enables per-step output capture for steps that declare a
// log file.
func WithLogDir(dir string) Option {
	return func(e *Executor) {
		e.logDir = dir
	}
}

// WithPollInterval sets the readiness-wait polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) {
		e.pollInterval = d
	}
}

// WithLogger overrides the progress logger.
func WithLogger(logf func(format string, v ...interface{})) Option {
	return func(e *Executor) {
		e.logf = logf
	}
}

// New creates an executor around the given runner.
func New(runner Runner, opts ...Option) *Executor {
	e := &Executor{
		runner:       runner,
		pollInterval: 5 * time.Second,
		logf:         log.Printf,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every step of the plan in order. Each step's
// classification is logged before the next step begins. A FatalFailure
// on a critical step aborts the plan immediately, leaving the node in
// whatever partial state it reached; a FatalFailure on an optional step
// downgrades to a warning and execution continues.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan) ([]StepResult, error) {
	results := make([]StepResult, 0, len(p.Steps))

	for i, step := range p.Steps {
		e.logf("[%d/%d] %s", i+1, len(p.Steps), step.Name)
		res := e.runStep(ctx, step)
		e.logf("[%d/%d] %s: %s (%v)", i+1, len(p.Steps), step.Name, res.Classification, res.Elapsed.Round(time.Millisecond))
		results = append(results, res)

		if res.Classification != FatalFailure {
			continue
		}
		if step.Critical {
			return results, fmt.Errorf("%s failed: %w%s", step.Name, res.Err, outputSuffix(res))
		}
		e.logf("warning: optional step %q failed, continuing: %v", step.Name, res.Err)
	}

	return results, nil
}

func (e *Executor) runStep(ctx context.Context, step plan.Step) StepResult {
	start := time.Now()
	res := StepResult{Step: step.Name}

	sctx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	if step.Check != nil {
		if ok, err := step.Check(sctx); err == nil && ok {
			res.Classification = AlreadySatisfied
			res.Elapsed = time.Since(start)
			return res
		}
	}

	switch {
	case step.Wait != nil:
		e.runWait(sctx, step, &res)
	case len(step.Command) > 0:
		e.runCommand(sctx, step, &res)
	case step.Do != nil:
		e.runDo(sctx, step, &res)
	default:
		res.Classification = FatalFailure
		res.Err = errors.New("step declares no action")
	}

	res.Elapsed = time.Since(start)
	return res
}

// runWait polls the readiness probe at a fixed interval up to the step
// timeout. Probe errors are treated as transient and polling continues;
// a persistently non-ready status becomes FatalFailure only after the
// timeout expires.
func (e *Executor) runWait(ctx context.Context, step plan.Step, res *StepResult) {
	res.Attempts = 1
	err := wait.PollUntilContextTimeout(ctx, e.pollInterval, step.Timeout, true,
		func(c context.Context) (bool, error) {
			ok, probeErr := step.Wait(c)
			if probeErr != nil {
				return false, nil
			}
			return ok, nil
		})
	if err != nil {
		res.Classification = FatalFailure
		res.Err = fmt.Errorf("timed out after %v: %w", step.Timeout, err)
		return
	}
	res.Classification = Success
}

func (e *Executor) runCommand(ctx context.Context, step plan.Step, res *StepResult) {
	var lastOut Output

	operation := func() error {
		res.Attempts++
		out, err := e.runner.Run(ctx, step.Command)
		lastOut = out
		if err != nil {
			if ctx.Err() != nil {
				// Timeout or cancellation: no further attempts.
				return retry.Fatal(err)
			}
			return err
		}
		if out.ExitCode != 0 {
			return fmt.Errorf("exit code %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
		}
		return nil
	}

	err := retry.Do(ctx, operation, e.retryOptions(step.Retry)...)

	res.ExitCode = lastOut.ExitCode
	res.Stdout = lastOut.Stdout
	res.Stderr = lastOut.Stderr
	e.captureLog(step, lastOut)

	if err != nil {
		res.Classification = FatalFailure
		res.Err = err
		return
	}
	res.Classification = Success
}

func (e *Executor) runDo(ctx context.Context, step plan.Step, res *StepResult) {
	operation := func() error {
		res.Attempts++
		err := step.Do(ctx)
		if err != nil && ctx.Err() != nil {
			return retry.Fatal(err)
		}
		return err
	}

	if err := retry.Do(ctx, operation, e.retryOptions(step.Retry)...); err != nil {
		res.Classification = FatalFailure
		res.Err = err
		return
	}
	res.Classification = Success
}

func (e *Executor) retryOptions(policy plan.RetryPolicy) []retry.Option {
	multiplier := 1.0
	if policy.Backoff == plan.BackoffExponential {
		multiplier = 2.0
	}
	return []retry.Option{
		retry.WithMaxAttempts(policy.MaxAttempts),
		retry.WithInitialDelay(policy.Delay),
		retry.WithMultiplier(multiplier),
	}
}

// captureLog writes the captured output of a long-running mutating
// command to the state directory.
func (e *Executor) captureLog(step plan.Step, out Output) {
	if step.LogFile == "" || e.logDir == "" {
		return
	}
	if err := os.MkdirAll(e.logDir, 0o755); err != nil {
		e.logf("warning: failed to create log directory %s: %v", e.logDir, err)
		return
	}
	path := filepath.Join(e.logDir, step.LogFile)
	content := fmt.Sprintf("# %s\n# %s\n\n--- stdout ---\n%s\n--- stderr ---\n%s\n",
		strings.Join(step.Command, " "), time.Now().Format(time.RFC3339), out.Stdout, out.Stderr)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		e.logf("warning: failed to write %s: %v", path, err)
	}
}

func outputSuffix(res StepResult) string {
	combined := strings.TrimSpace(res.Stderr)
	if combined == "" {
		combined = strings.TrimSpace(res.Stdout)
	}
	if combined == "" {
		return ""
	}
	// Keep the diagnostic readable: last few lines only.
	lines := strings.Split(combined, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return "\nlast command output:\n" + strings.Join(lines, "\n")
}
