package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// InteractiveConfirmer prompts on the terminal. Construction fails when
// stdin is not a TTY; destructive gates must never silently pass in a
// pipeline.
type InteractiveConfirmer struct{}

// NewInteractiveConfirmer creates a terminal-backed confirmer. Returns
// an error when stdin is not a terminal.
func NewInteractiveConfirmer() (*InteractiveConfirmer, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal; re-run with --yes to skip confirmation prompts")
	}
	return &InteractiveConfirmer{}, nil
}

// Confirm asks a yes/no question.
func (c *InteractiveConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Value(&confirmed),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

// ConfirmTyped asks the user to type an exact token. Any other input,
// including an empty line, counts as a decline.
func (c *InteractiveConfirmer) ConfirmTyped(ctx context.Context, prompt, token string) (bool, error) {
	var input string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(prompt).
				Description(fmt.Sprintf("Type %q to proceed, anything else to abort", token)).
				Value(&input),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return input == token, nil
}

// Choose asks the user to pick one of the given options.
func (c *InteractiveConfirmer) Choose(ctx context.Context, prompt string, options []string) (string, error) {
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}

	var choice string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(prompt).
				Options(opts...).
				Value(&choice),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return choice, nil
}

// PreConfirmed answers yes to every gate, including typed ones. Used by
// --yes for scripted runs; the caller opts into destruction explicitly.
type PreConfirmed struct{}

func (PreConfirmed) Confirm(context.Context, string) (bool, error) { return true, nil }

func (PreConfirmed) ConfirmTyped(context.Context, string, string) (bool, error) { return true, nil }

// Choose picks the last option. Callers order choices so the last one
// is the safe fallback; destructive branches stay behind explicit
// flags even under --yes.
func (PreConfirmed) Choose(_ context.Context, _ string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options to choose from")
	}
	return options[len(options)-1], nil
}
