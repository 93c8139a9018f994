package handlers

import (
	"context"

	"github.com/fabriziosalmi/k8s/internal/plan"
)

// Init handles the init command. With reset the existing cluster is
// torn down first; otherwise an existing cluster triggers an interactive
// choice between destroy, modify, and abort.
func Init(ctx context.Context, configPath string, yes, reset bool) error {
	intent := plan.IntentInit
	if reset {
		intent = plan.IntentResetAndInit
	}
	return run(ctx, configPath, yes, intent, plan.Options{})
}

// Modify handles the modify command.
func Modify(ctx context.Context, configPath string, yes bool) error {
	return run(ctx, configPath, yes, plan.IntentModify, plan.Options{})
}

// Start handles the start command.
func Start(ctx context.Context, configPath string, yes bool) error {
	return run(ctx, configPath, yes, plan.IntentStart, plan.Options{})
}

// Stop handles the stop command.
func Stop(ctx context.Context, configPath string, yes bool) error {
	return run(ctx, configPath, yes, plan.IntentStop, plan.Options{})
}

// Destroy handles the destroy command.
func Destroy(ctx context.Context, configPath string, yes bool) error {
	return run(ctx, configPath, yes, plan.IntentDestroy, plan.Options{})
}
