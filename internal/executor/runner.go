package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Output captures one external command invocation.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner invokes an external tool. The os/exec implementation is the
// default; tests inject fakes.
type Runner interface {
	Run(ctx context.Context, argv []string) (Output, error)
}

// ExecRunner runs commands through os/exec with signal propagation via
// the context.
type ExecRunner struct{}

// Run executes argv[0] with the remaining arguments. A non-zero exit is
// reported through Output.ExitCode with a nil error; err is reserved for
// failures to run the command at all (missing binary, context expiry).
func (r *ExecRunner) Run(ctx context.Context, argv []string) (Output, error) {
	if len(argv) == 0 {
		return Output{}, errors.New("empty command")
	}

	// #nosec G204 -- argv is constructed by the planner, not user input
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, err
	}
	return out, nil
}
