package plan

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fabriziosalmi/k8s/internal/config"
	"github.com/fabriziosalmi/k8s/internal/state"
)

// DestroyToken is the explicit confirmation string required before any
// destructive plan is constructed. A plain y/n is not accepted.
const DestroyToken = "destroy"

const (
	unitContainerd = "containerd.service"
	unitKubelet    = "kubelet.service"

	cniConfDir = "/etc/cni/net.d"
	sysctlConf = "/etc/sysctl.d/99-kubernetes-cri.conf"
)

// Options carries per-invocation parameters that are not part of the
// static configuration.
type Options struct {
	// Apps names the catalogue applications for install/uninstall
	// intents.
	Apps []string

	// DeleteData requests removal of persisted application data
	// (PVCs/PVs) during uninstall. It is confirmed separately per app.
	DeleteData bool

	// Detected is the managed-app detection result the caller obtained
	// before planning an uninstall. The planner uses it to flag
	// unverified ownership.
	Detected []state.ManagedApp
}

// Deps are the capabilities plan steps close over. All of them are
// ports so the planner is unit-testable without a cluster, a terminal,
// or systemd.
type Deps struct {
	Config   *config.Config
	Timeouts *config.Timeouts
	Confirm  Confirmer
	Cluster  ClusterFunc
	Systemd  UnitManager
	Apps     AppManager

	// KnownApp reports catalogue membership; unknown names are
	// precondition errors.
	KnownApp func(name string) bool
}

// Planner maps (NodeState, Intent) to an ordered plan of steps.
type Planner struct {
	deps Deps
}

// NewPlanner creates a planner with the given dependencies.
func NewPlanner(deps Deps) *Planner {
	return &Planner{deps: deps}
}

// Plan builds the plan for the given detected state and intent.
// Precondition violations and declined confirmation gates surface here;
// no step has executed when Plan returns an error.
func (p *Planner) Plan(ctx context.Context, st state.NodeState, intent Intent, opts Options) (*Plan, error) {
	switch intent {
	case IntentStatus:
		// Read-only report, no mutation regardless of state.
		return &Plan{Intent: intent}, nil

	case IntentInit:
		if st == state.Uninitialized {
			return &Plan{Intent: intent, Steps: p.initSteps()}, nil
		}
		// An existing cluster requires an explicit choice; no silent
		// action.
		return p.planInitOnExisting(ctx)

	case IntentResetAndInit:
		return p.planResetAndInit(ctx, st)

	case IntentModify:
		if st == state.Uninitialized {
			return nil, &PreconditionError{Intent: intent, Reason: "no existing cluster configuration found"}
		}
		if err := p.requireKubeconfig(intent); err != nil {
			return nil, err
		}
		return &Plan{Intent: intent, Steps: p.modifySteps()}, nil

	case IntentStart:
		if st == state.Uninitialized {
			return nil, &PreconditionError{Intent: intent, Reason: "no existing cluster configuration found"}
		}
		if err := p.requireKubeconfig(intent); err != nil {
			return nil, err
		}
		return &Plan{Intent: intent, Steps: p.startSteps()}, nil

	case IntentStop:
		if st == state.Uninitialized {
			return nil, &PreconditionError{Intent: intent, Reason: "no existing cluster configuration found"}
		}
		return &Plan{Intent: intent, Steps: p.stopSteps()}, nil

	case IntentDestroy:
		return p.planDestroy(ctx, st)

	case IntentInstallApps:
		return p.planInstallApps(st, opts)

	case IntentUninstallApps:
		return p.planUninstallApps(ctx, st, opts)

	default:
		return nil, fmt.Errorf("unknown intent: %q", intent)
	}
}

// planInitOnExisting resolves the init-on-existing-cluster ambiguity
// through the confirmation port. Detection ambiguity is already resolved
// conservatively by the detector (an unreadable kubeconfig classifies as
// ClusterPresent), so this path never double-initializes.
func (p *Planner) planInitOnExisting(ctx context.Context) (*Plan, error) {
	const (
		optDestroy = "destroy and re-initialize"
		optModify  = "modify the existing cluster"
		optAbort   = "abort"
	)

	choice, err := p.deps.Confirm.Choose(ctx,
		"An existing cluster configuration was detected. How should it be handled?",
		[]string{optDestroy, optModify, optAbort})
	if err != nil {
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}

	switch choice {
	case optDestroy:
		return p.planResetAndInit(ctx, state.ClusterPresent)
	case optModify:
		if err := p.requireKubeconfig(IntentModify); err != nil {
			return nil, err
		}
		return &Plan{Intent: IntentModify, Steps: p.modifySteps()}, nil
	default:
		return nil, ErrUserAborted
	}
}

func (p *Planner) planResetAndInit(ctx context.Context, st state.NodeState) (*Plan, error) {
	var steps []Step
	if st != state.Uninitialized {
		ok, err := p.deps.Confirm.ConfirmTyped(ctx,
			"This will destroy the existing cluster and all its workloads.", DestroyToken)
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return nil, ErrUserAborted
		}
		steps = append(steps, p.resetSteps()...)
	}
	steps = append(steps, p.initSteps()...)
	return &Plan{Intent: IntentResetAndInit, Steps: steps}, nil
}

func (p *Planner) planDestroy(ctx context.Context, st state.NodeState) (*Plan, error) {
	if st == state.Uninitialized {
		return nil, &PreconditionError{Intent: IntentDestroy, Reason: "no existing cluster configuration found"}
	}

	ok, err := p.deps.Confirm.ConfirmTyped(ctx,
		"This will destroy the cluster, its workloads, and local cluster state.", DestroyToken)
	if err != nil {
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return nil, ErrUserAborted
	}

	steps := p.resetSteps()
	steps = append(steps,
		Step{
			Name:     "stop kubelet",
			Critical: false,
			Timeout:  p.deps.Timeouts.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.StopUnit(ctx, unitKubelet)
			},
		},
		Step{
			Name:     "stop container runtime",
			Critical: false,
			Timeout:  p.deps.Timeouts.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.StopUnit(ctx, unitContainerd)
			},
		},
	)
	return &Plan{Intent: IntentDestroy, Steps: steps}, nil
}

func (p *Planner) planInstallApps(st state.NodeState, opts Options) (*Plan, error) {
	if err := p.appsPrecondition(IntentInstallApps, st, opts.Apps); err != nil {
		return nil, err
	}

	var steps []Step
	for _, name := range opts.Apps {
		name := name
		steps = append(steps, Step{
			// One failing application does not halt the others.
			Name:     fmt.Sprintf("install %s", name),
			Critical: false,
			Timeout:  p.deps.Timeouts.DeployReady,
			Retry:    p.transientRetry(),
			Do: func(ctx context.Context) error {
				return p.deps.Apps.Install(ctx, name)
			},
		})
	}
	return &Plan{Intent: IntentInstallApps, Steps: steps}, nil
}

// planUninstallApps gates every deletion individually. Namespaces whose
// ownership could not be verified get an extra typed confirmation, and
// persisted data removal is confirmed separately from the uninstall
// itself. Declining a gate skips that app without aborting the rest.
func (p *Planner) planUninstallApps(ctx context.Context, st state.NodeState, opts Options) (*Plan, error) {
	if err := p.appsPrecondition(IntentUninstallApps, st, opts.Apps); err != nil {
		return nil, err
	}

	detected := make(map[string]state.ManagedApp, len(opts.Detected))
	for _, app := range opts.Detected {
		detected[app.Name] = app
	}

	var steps []Step
	for _, name := range opts.Apps {
		app, installed := detected[name]
		if !installed {
			continue
		}

		ok, err := p.deps.Confirm.Confirm(ctx, fmt.Sprintf("Uninstall %s (namespace %s)?", name, app.Namespace))
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			continue
		}

		if app.Ownership == state.OwnershipUnverified {
			ok, err := p.deps.Confirm.ConfirmTyped(ctx,
				fmt.Sprintf("Namespace %s does not carry the %s=%s marker; it may not have been created by this tool.",
					app.Namespace, config.ManagedByLabel, config.ManagedByValue),
				app.Namespace)
			if err != nil {
				return nil, fmt.Errorf("confirmation failed: %w", err)
			}
			if !ok {
				continue
			}
		}

		deleteData := false
		if opts.DeleteData {
			ok, err := p.deps.Confirm.ConfirmTyped(ctx,
				fmt.Sprintf("Also delete persisted data (PVCs and PVs) of %s? This cannot be undone.", name),
				name)
			if err != nil {
				return nil, fmt.Errorf("confirmation failed: %w", err)
			}
			deleteData = ok
		}

		name := name
		steps = append(steps, Step{
			Name:     fmt.Sprintf("uninstall %s", name),
			Critical: false,
			Timeout:  p.deps.Timeouts.DeployReady,
			Retry:    p.transientRetry(),
			Do: func(ctx context.Context) error {
				return p.deps.Apps.Uninstall(ctx, name, deleteData)
			},
		})
	}
	return &Plan{Intent: IntentUninstallApps, Steps: steps}, nil
}

func (p *Planner) appsPrecondition(intent Intent, st state.NodeState, names []string) error {
	if st == state.Uninitialized {
		return &PreconditionError{Intent: intent, Reason: "no existing cluster configuration found"}
	}
	if st == state.PartiallyConfigured {
		return &PreconditionError{Intent: intent, Reason: "cluster API is unreachable"}
	}
	if len(names) == 0 {
		return &PreconditionError{Intent: intent, Reason: "no applications selected"}
	}
	for _, name := range names {
		if !p.deps.KnownApp(name) {
			return &PreconditionError{Intent: intent, Reason: fmt.Sprintf("unknown application %q", name)}
		}
	}
	return nil
}

// initSteps is the full bootstrap chain for a fresh node: OS preparation,
// runtime and tool installation, cluster-init, access configuration, pod
// network, untaint, and the optional extras.
func (p *Planner) initSteps() []Step {
	t := p.deps.Timeouts
	cfg := p.deps.Config

	steps := []Step{
		{
			Name:     "disable swap",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Command:  []string{"swapoff", "-a"},
		},
		{
			Name:     "persist swap off",
			Critical: false,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Command:  []string{"sed", "-i", "/ swap / s/^#*/#/", "/etc/fstab"},
		},
		{
			Name:     "load overlay kernel module",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Command:  []string{"modprobe", "overlay"},
		},
		{
			Name:     "load br_netfilter kernel module",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Command:  []string{"modprobe", "br_netfilter"},
		},
		{
			Name:     "write kubernetes sysctl settings",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do:       writeSysctlConf,
		},
		{
			Name:     "apply sysctl settings",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Command:  []string{"sysctl", "--system"},
		},
		{
			Name:     "refresh package index",
			Critical: true,
			Timeout:  t.Command,
			Retry:    p.transientRetry(),
			Command:  []string{"apt-get", "update"},
		},
		{
			Name:     "install container runtime and kubernetes tools",
			Critical: true,
			Timeout:  t.Command,
			Retry:    p.transientRetry(),
			Check:    toolsPresent,
			Command:  []string{"apt-get", "install", "-y", "containerd", "kubelet", "kubeadm", "kubectl"},
			LogFile:  "apt-install.log",
		},
		{
			Name:     "enable container runtime",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				if err := p.deps.Systemd.EnableUnit(ctx, unitContainerd); err != nil {
					return err
				}
				return p.deps.Systemd.StartUnit(ctx, unitContainerd)
			},
		},
		{
			Name:     "enable kubelet",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.EnableUnit(ctx, unitKubelet)
			},
		},
		{
			Name:     "cluster-init",
			Critical: true,
			Timeout:  t.ClusterInit,
			Retry:    NoRetry,
			Check:    fileExists(cfg.Paths.AdminKubeconfig),
			Command:  p.kubeadmInitCommand(),
			LogFile:  "kubeadm-init.log",
		},
		{
			Name:     "configure cluster access",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(_ context.Context) error {
				return installKubeconfig(cfg.Paths.AdminKubeconfig, cfg.Paths.UserKubeconfig)
			},
		},
		{
			Name:     "install pod network",
			Critical: true,
			Timeout:  t.DeployReady,
			Retry:    p.transientRetry(),
			Do: p.clusterDo(func(ctx context.Context, c ClusterOps) error {
				return c.ApplyManifestURL(ctx, cfg.CNIManifestURL)
			}),
		},
		{
			Name:     "allow workloads on control plane",
			Critical: true,
			Timeout:  t.Command,
			Retry:    p.transientRetry(),
			Do: p.clusterDo(func(ctx context.Context, c ClusterOps) error {
				return c.UntaintControlPlane(ctx)
			}),
		},
		{
			Name:     "wait for node ready",
			Critical: true,
			Timeout:  t.NodeReady,
			Retry:    NoRetry,
			Wait:     p.nodeReadyProbe(),
		},
	}

	return append(steps, p.extraSteps()...)
}

// modifySteps applies the cluster-side configuration against an existing
// cluster: pod network, untaint, extras. Cluster-init is skipped, and
// every step here is idempotent by construction, so running the plan
// twice produces no additional mutations beyond reapplying manifests.
func (p *Planner) modifySteps() []Step {
	t := p.deps.Timeouts
	cfg := p.deps.Config

	steps := []Step{
		{
			Name:     "install pod network",
			Critical: true,
			Timeout:  t.DeployReady,
			Retry:    p.transientRetry(),
			Do: p.clusterDo(func(ctx context.Context, c ClusterOps) error {
				return c.ApplyManifestURL(ctx, cfg.CNIManifestURL)
			}),
		},
		{
			Name:     "allow workloads on control plane",
			Critical: true,
			Timeout:  t.Command,
			Retry:    p.transientRetry(),
			Do: p.clusterDo(func(ctx context.Context, c ClusterOps) error {
				return c.UntaintControlPlane(ctx)
			}),
		},
		{
			Name:     "wait for node ready",
			Critical: true,
			Timeout:  t.NodeReady,
			Retry:    NoRetry,
			Wait:     p.nodeReadyProbe(),
		},
	}

	return append(steps, p.extraSteps()...)
}

// extraSteps installs the optional features. Their failure downgrades to
// a warning; the plan continues.
func (p *Planner) extraSteps() []Step {
	t := p.deps.Timeouts
	var steps []Step

	if p.deps.Config.Features.MetricsServer {
		steps = append(steps, Step{
			Name:     "install metrics-server",
			Critical: false,
			Timeout:  t.DeployReady,
			Retry:    p.transientRetry(),
			Do: func(ctx context.Context) error {
				return p.deps.Apps.Install(ctx, "metrics-server")
			},
		})
	}
	if p.deps.Config.Features.Dashboard {
		steps = append(steps, Step{
			Name:     "install dashboard",
			Critical: false,
			Timeout:  t.DeployReady,
			Retry:    p.transientRetry(),
			Do: func(ctx context.Context) error {
				return p.deps.Apps.Install(ctx, "dashboard")
			},
		})
	}
	return steps
}

func (p *Planner) startSteps() []Step {
	t := p.deps.Timeouts
	return []Step{
		{
			Name:     "start container runtime",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.StartUnit(ctx, unitContainerd)
			},
		},
		{
			Name:     "start kubelet",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.StartUnit(ctx, unitKubelet)
			},
		},
		{
			Name:     "wait for node ready",
			Critical: true,
			Timeout:  t.NodeReady,
			Retry:    NoRetry,
			Wait:     p.nodeReadyProbe(),
		},
	}
}

func (p *Planner) stopSteps() []Step {
	t := p.deps.Timeouts
	return []Step{
		{
			Name:     "stop kubelet",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.StopUnit(ctx, unitKubelet)
			},
		},
		{
			Name:     "stop container runtime",
			Critical: true,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(ctx context.Context) error {
				return p.deps.Systemd.StopUnit(ctx, unitContainerd)
			},
		},
	}
}

// resetSteps tears the cluster down: kubeadm reset, then filesystem
// cleanup. The cleanup steps are optional; a half-removed directory is
// not worth aborting over.
func (p *Planner) resetSteps() []Step {
	t := p.deps.Timeouts
	cfg := p.deps.Config

	return []Step{
		{
			Name:     "cluster-reset",
			Critical: true,
			Timeout:  t.ClusterReset,
			Retry:    NoRetry,
			Command:  []string{"kubeadm", "reset", "-f"},
			LogFile:  "kubeadm-reset.log",
		},
		{
			Name:     "remove cni configuration",
			Critical: false,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(_ context.Context) error {
				return os.RemoveAll(cniConfDir)
			},
		},
		{
			Name:     "remove cluster credentials",
			Critical: false,
			Timeout:  t.Command,
			Retry:    NoRetry,
			Do: func(_ context.Context) error {
				for _, path := range []string{cfg.Paths.UserKubeconfig, cfg.Paths.DashboardTokenFile} {
					if path == "" {
						continue
					}
					if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
						return err
					}
				}
				return nil
			},
		},
	}
}

func (p *Planner) kubeadmInitCommand() []string {
	cfg := p.deps.Config
	cmd := []string{"kubeadm", "init", "--pod-network-cidr", cfg.PodNetworkCIDR}
	if cfg.NodeName != "" {
		cmd = append(cmd, "--node-name", cfg.NodeName)
	}
	return cmd
}

func (p *Planner) nodeReadyProbe() Probe {
	return func(ctx context.Context) (bool, error) {
		c, err := p.deps.Cluster(ctx)
		if err != nil {
			return false, err
		}
		return c.NodeReady(ctx, p.deps.Config.NodeName)
	}
}

func (p *Planner) clusterDo(fn func(ctx context.Context, c ClusterOps) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		c, err := p.deps.Cluster(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, c)
	}
}

func (p *Planner) transientRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: p.deps.Timeouts.RetryMaxAttempts,
		Delay:       p.deps.Timeouts.RetryInitialDelay,
		Backoff:     BackoffExponential,
	}
}

// requireKubeconfig guards intents whose steps need an API client. A node
// can classify as cluster-present from the manifest directory alone; without
// the admin kubeconfig those plans would only fail mid-execution, so refuse
// them up front.
func (p *Planner) requireKubeconfig(intent Intent) error {
	path := p.deps.Config.Paths.AdminKubeconfig
	if _, err := os.Stat(path); err != nil {
		return &PreconditionError{Intent: intent, Reason: fmt.Sprintf("kubeconfig %s not found", path)}
	}
	return nil
}

func writeSysctlConf(_ context.Context) error {
	content := "net.bridge.bridge-nf-call-iptables  = 1\n" +
		"net.bridge.bridge-nf-call-ip6tables = 1\n" +
		"net.ipv4.ip_forward                 = 1\n"
	return os.WriteFile(sysctlConf, []byte(content), 0o644)
}

func toolsPresent(_ context.Context) (bool, error) {
	for _, tool := range []string{"kubeadm", "kubelet", "kubectl"} {
		if _, err := exec.LookPath(tool); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func fileExists(path string) Probe {
	return func(_ context.Context) (bool, error) {
		_, err := os.Stat(path)
		return err == nil, nil
	}
}

func installKubeconfig(src, dst string) error {
	if dst == "" {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
