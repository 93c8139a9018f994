// Package handlers implements the command logic behind the CLI surface.
//
// Each handler wires configuration, state detection, planning, and
// execution together. Construction of external dependencies goes through
// package-level factory variables so tests can swap them out.
package handlers

import (
	"context"
	"log"

	"github.com/fabriziosalmi/k8s/internal/apps"
	"github.com/fabriziosalmi/k8s/internal/config"
	"github.com/fabriziosalmi/k8s/internal/executor"
	"github.com/fabriziosalmi/k8s/internal/k8s"
	"github.com/fabriziosalmi/k8s/internal/plan"
	"github.com/fabriziosalmi/k8s/internal/state"
	"github.com/fabriziosalmi/k8s/internal/system"
	"github.com/fabriziosalmi/k8s/internal/ui"
)

// Factory function variables - can be replaced in tests.
var (
	loadConfig = func(path string) (*config.Config, error) {
		if path == "" {
			return config.Default(), nil
		}
		return config.LoadFile(path)
	}

	newConfirmer = func(yes bool) (plan.Confirmer, error) {
		if yes {
			return ui.PreConfirmed{}, nil
		}
		return ui.NewInteractiveConfirmer()
	}

	newRunner = func() executor.Runner {
		return &executor.ExecRunner{}
	}

	newUnitManager = func() plan.UnitManager {
		return system.NewSystemdManager()
	}

	newClusterClient = func(kubeconfigPath string) (*k8s.Client, error) {
		return k8s.NewClient(kubeconfigPath)
	}

	newAppManager = func(cfg *config.Config, timeouts config.Timeouts) plan.AppManager {
		return &lazyAppManager{cfg: cfg, timeouts: timeouts}
	}
)

// environment bundles the wired dependencies of one invocation.
type environment struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	detector *state.Detector
	planner  *plan.Planner
	exec     *executor.Executor
}

func buildEnvironment(configPath string, yes bool) (*environment, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeouts := config.LoadTimeouts()

	confirm, err := newConfirmer(yes)
	if err != nil {
		return nil, err
	}

	clusterFunc := func(ctx context.Context) (plan.ClusterOps, error) {
		return newClusterClient(cfg.Paths.AdminKubeconfig)
	}

	planner := plan.NewPlanner(plan.Deps{
		Config:   cfg,
		Timeouts: timeouts,
		Confirm:  confirm,
		Cluster:  clusterFunc,
		Systemd:  newUnitManager(),
		Apps:     newAppManager(cfg, *timeouts),
		KnownApp: apps.Known,
	})

	detector := state.NewDetector(cfg.Paths, &lazyPinger{kubeconfig: cfg.Paths.AdminKubeconfig})

	exec := executor.New(newRunner(),
		executor.WithLogDir(cfg.Paths.StateDir),
		executor.WithPollInterval(timeouts.PollInterval),
	)

	return &environment{
		cfg:      cfg,
		timeouts: timeouts,
		detector: detector,
		planner:  planner,
		exec:     exec,
	}, nil
}

// run is the shared plan-then-execute path for mutating commands.
func run(ctx context.Context, configPath string, yes bool, intent plan.Intent, opts plan.Options) error {
	env, err := buildEnvironment(configPath, yes)
	if err != nil {
		return err
	}
	return runWith(ctx, env, intent, opts)
}

func runWith(ctx context.Context, env *environment, intent plan.Intent, opts plan.Options) error {
	var st state.NodeState
	if err := ui.WithSpinner("detecting node state", func() error {
		st = env.detector.Detect(ctx)
		return nil
	}); err != nil {
		return err
	}
	log.Printf("Node state: %s", st)

	p, err := env.planner.Plan(ctx, st, intent, opts)
	if err != nil {
		return err
	}
	if !p.Mutating() {
		log.Printf("Nothing to do for %s", intent)
		return nil
	}

	if _, err := env.exec.Execute(ctx, p); err != nil {
		return err
	}
	log.Printf("%s completed", intent)
	return nil
}

// lazyPinger builds the API client on first probe. The kubeconfig may
// not exist when the detector is constructed.
type lazyPinger struct {
	kubeconfig string
}

func (p *lazyPinger) Ping(ctx context.Context) error {
	client, err := newClusterClient(p.kubeconfig)
	if err != nil {
		return err
	}
	return client.Ping(ctx)
}

// lazyAppManager defers client construction until a step actually runs.
// Install/uninstall steps execute only after the cluster is reachable.
type lazyAppManager struct {
	cfg      *config.Config
	timeouts config.Timeouts
}

func (l *lazyAppManager) manager() (*apps.Manager, error) {
	client, err := newClusterClient(l.cfg.Paths.AdminKubeconfig)
	if err != nil {
		return nil, err
	}
	helm := k8s.NewHelmClient(l.cfg.Paths.AdminKubeconfig)
	return apps.NewManager(helm, client, l.timeouts, l.cfg.Paths.DashboardTokenFile), nil
}

func (l *lazyAppManager) Install(ctx context.Context, name string) error {
	m, err := l.manager()
	if err != nil {
		return err
	}
	return m.Install(ctx, name)
}

func (l *lazyAppManager) Uninstall(ctx context.Context, name string, deleteData bool) error {
	m, err := l.manager()
	if err != nil {
		return err
	}
	return m.Uninstall(ctx, name, deleteData)
}
