package handlers

import (
	"context"
	"io"
	"os"

	"github.com/fabriziosalmi/k8s/internal/apps"
	"github.com/fabriziosalmi/k8s/internal/state"
	"github.com/fabriziosalmi/k8s/internal/ui"
)

// statusWriter receives the rendered status output. Replaced in tests.
var statusWriter io.Writer = os.Stdout

// Status handles the status command. It is strictly read-only: state is
// detected fresh and nothing on the node or cluster is mutated.
func Status(ctx context.Context, configPath string) error {
	env, err := buildEnvironment(configPath, true)
	if err != nil {
		return err
	}

	var st state.NodeState
	if err := ui.WithSpinner("detecting node state", func() error {
		st = env.detector.Detect(ctx)
		return nil
	}); err != nil {
		return err
	}

	report := ui.StatusReport{
		NodeState:  st,
		NodeName:   env.cfg.NodeName,
		Kubeconfig: env.cfg.Paths.AdminKubeconfig,
	}

	if st == state.ClusterPresent {
		if client, err := newClusterClient(env.cfg.Paths.AdminKubeconfig); err == nil {
			if client.Ping(ctx) == nil {
				report.APIReachable = true
				report.Apps, _ = state.DetectManagedApps(ctx, client, apps.Refs())
			}
		}
	}

	ui.RenderStatus(statusWriter, report)
	return nil
}
