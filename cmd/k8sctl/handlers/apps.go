package handlers

import (
	"context"
	"fmt"

	"github.com/fabriziosalmi/k8s/internal/apps"
	"github.com/fabriziosalmi/k8s/internal/plan"
	"github.com/fabriziosalmi/k8s/internal/state"
)

// InstallApps handles the apps install command.
func InstallApps(ctx context.Context, configPath string, yes bool, names []string) error {
	return run(ctx, configPath, yes, plan.IntentInstallApps, plan.Options{Apps: names})
}

// UninstallApps handles the apps uninstall command. Managed-app
// detection runs first so the planner can warn about namespaces that do
// not carry the managed-by marker. The cluster is authoritative: a
// failed ownership query aborts rather than reading as "not installed".
func UninstallApps(ctx context.Context, configPath string, yes, deleteData bool, names []string) error {
	env, err := buildEnvironment(configPath, yes)
	if err != nil {
		return err
	}

	var detected []state.ManagedApp
	if env.detector.Detect(ctx) == state.ClusterPresent {
		client, err := newClusterClient(env.cfg.Paths.AdminKubeconfig)
		if err != nil {
			return fmt.Errorf("failed to query managed applications: %w", err)
		}
		detected, err = state.DetectManagedApps(ctx, client, apps.Refs())
		if err != nil {
			return fmt.Errorf("failed to query managed applications: %w", err)
		}
	}

	return runWith(ctx, env, plan.IntentUninstallApps, plan.Options{
		Apps:       names,
		DeleteData: deleteData,
		Detected:   detected,
	})
}
