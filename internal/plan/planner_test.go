package plan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriziosalmi/k8s/internal/config"
	"github.com/fabriziosalmi/k8s/internal/state"
)

type fakeConfirmer struct {
	confirmAnswer bool
	typedAnswer   bool
	chooseAnswer  string
	err           error

	confirmPrompts []string
	typedPrompts   []string
	typedTokens    []string
	choosePrompts  []string
}

func (f *fakeConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	f.confirmPrompts = append(f.confirmPrompts, prompt)
	return f.confirmAnswer, f.err
}

func (f *fakeConfirmer) ConfirmTyped(_ context.Context, prompt, token string) (bool, error) {
	f.typedPrompts = append(f.typedPrompts, prompt)
	f.typedTokens = append(f.typedTokens, token)
	return f.typedAnswer, f.err
}

func (f *fakeConfirmer) Choose(_ context.Context, prompt string, _ []string) (string, error) {
	f.choosePrompts = append(f.choosePrompts, prompt)
	return f.chooseAnswer, f.err
}

type fakeSystemd struct{}

func (f *fakeSystemd) StartUnit(_ context.Context, _ string) error  { return nil }
func (f *fakeSystemd) StopUnit(_ context.Context, _ string) error   { return nil }
func (f *fakeSystemd) EnableUnit(_ context.Context, _ string) error { return nil }

type fakeApps struct{}

func (f *fakeApps) Install(_ context.Context, _ string) error           { return nil }
func (f *fakeApps) Uninstall(_ context.Context, _ string, _ bool) error { return nil }

func testDeps(t *testing.T, confirm *fakeConfirmer) Deps {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.AdminKubeconfig = filepath.Join(t.TempDir(), "admin.conf")
	require.NoError(t, os.WriteFile(cfg.Paths.AdminKubeconfig, []byte("apiVersion: v1\nkind: Config\n"), 0o600))
	return Deps{
		Config:   cfg,
		Timeouts: &config.Timeouts{Command: time.Minute, ClusterInit: time.Minute, ClusterReset: time.Minute, NodeReady: time.Minute, DeployReady: time.Minute, PollInterval: time.Second, RetryMaxAttempts: 3, RetryInitialDelay: time.Millisecond},
		Confirm:  confirm,
		Cluster: func(_ context.Context) (ClusterOps, error) {
			return nil, errors.New("no cluster in planner tests")
		},
		Systemd:  &fakeSystemd{},
		Apps:     &fakeApps{},
		KnownApp: func(name string) bool { return name == "portainer" || name == "nextcloud" },
	}
}

func stepNames(p *Plan) []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Name)
	}
	return names
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestPlan_StatusIsAlwaysEmpty(t *testing.T) {
	p := NewPlanner(testDeps(t, &fakeConfirmer{}))

	for _, st := range []state.NodeState{state.Uninitialized, state.ClusterPresent, state.PartiallyConfigured} {
		plan, err := p.Plan(context.Background(), st, IntentStatus, Options{})
		require.NoError(t, err)
		assert.False(t, plan.Mutating(), "status plan must not mutate in state %s", st)
	}
}

func TestPlan_InitOnFreshNode(t *testing.T) {
	confirm := &fakeConfirmer{}
	p := NewPlanner(testDeps(t, confirm))

	plan, err := p.Plan(context.Background(), state.Uninitialized, IntentInit, Options{})
	require.NoError(t, err)

	names := stepNames(plan)
	// OS prep before cluster-init before pod network before untaint.
	swap := indexOf(names, "disable swap")
	install := indexOf(names, "install container runtime and kubernetes tools")
	init := indexOf(names, "cluster-init")
	cni := indexOf(names, "install pod network")
	untaint := indexOf(names, "allow workloads on control plane")
	ready := indexOf(names, "wait for node ready")

	require.NotEqual(t, -1, swap)
	require.NotEqual(t, -1, init)
	assert.Less(t, swap, install)
	assert.Less(t, install, init)
	assert.Less(t, init, cni)
	assert.Less(t, cni, untaint)
	assert.Less(t, untaint, ready)

	// Fresh-node init asks no questions.
	assert.Empty(t, confirm.confirmPrompts)
	assert.Empty(t, confirm.typedPrompts)
	assert.Empty(t, confirm.choosePrompts)

	// The dashboard extra is enabled by default and optional.
	dash := indexOf(names, "install dashboard")
	require.NotEqual(t, -1, dash)
	assert.False(t, plan.Steps[dash].Critical)
	assert.True(t, plan.Steps[init].Critical)
}

func TestPlan_InitOnExistingRequiresChoice(t *testing.T) {
	t.Run("abort", func(t *testing.T) {
		confirm := &fakeConfirmer{chooseAnswer: "abort"}
		p := NewPlanner(testDeps(t, confirm))

		_, err := p.Plan(context.Background(), state.ClusterPresent, IntentInit, Options{})
		assert.ErrorIs(t, err, ErrUserAborted)
		assert.Len(t, confirm.choosePrompts, 1)
	})

	t.Run("modify", func(t *testing.T) {
		confirm := &fakeConfirmer{chooseAnswer: "modify the existing cluster"}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentInit, Options{})
		require.NoError(t, err)
		assert.Equal(t, -1, indexOf(stepNames(plan), "cluster-init"))
	})

	t.Run("destroy and reinit", func(t *testing.T) {
		confirm := &fakeConfirmer{chooseAnswer: "destroy and re-initialize", typedAnswer: true}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentInit, Options{})
		require.NoError(t, err)

		names := stepNames(plan)
		reset := indexOf(names, "cluster-reset")
		init := indexOf(names, "cluster-init")
		require.NotEqual(t, -1, reset)
		require.NotEqual(t, -1, init)
		assert.Less(t, reset, init)
		assert.Equal(t, []string{DestroyToken}, confirm.typedTokens)
	})
}

func TestPlan_ModifyRequiresExistingCluster(t *testing.T) {
	p := NewPlanner(testDeps(t, &fakeConfirmer{}))

	_, err := p.Plan(context.Background(), state.Uninitialized, IntentModify, Options{})
	assert.True(t, IsPrecondition(err), "expected precondition error, got %v", err)
}

func TestPlan_ModifyWithoutKubeconfig(t *testing.T) {
	// A leftover manifest directory classifies the node as cluster-present
	// even when kubeadm never wrote a kubeconfig. Those plans cannot build
	// an API client, so they must be refused before any step runs.
	deps := testDeps(t, &fakeConfirmer{})
	require.NoError(t, os.Remove(deps.Config.Paths.AdminKubeconfig))
	p := NewPlanner(deps)

	for _, intent := range []Intent{IntentModify, IntentStart} {
		_, err := p.Plan(context.Background(), state.ClusterPresent, intent, Options{})
		assert.True(t, IsPrecondition(err), "intent %s: expected precondition error, got %v", intent, err)
	}

	// Stop only talks to systemd and stays available for cleanup.
	stop, err := p.Plan(context.Background(), state.ClusterPresent, IntentStop, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, stop.Steps)
}

func TestPlan_InitModifyChoiceWithoutKubeconfig(t *testing.T) {
	confirm := &fakeConfirmer{chooseAnswer: "modify the existing cluster"}
	deps := testDeps(t, confirm)
	require.NoError(t, os.Remove(deps.Config.Paths.AdminKubeconfig))
	p := NewPlanner(deps)

	_, err := p.Plan(context.Background(), state.ClusterPresent, IntentInit, Options{})
	assert.True(t, IsPrecondition(err), "expected precondition error, got %v", err)
}

func TestPlan_ModifyIsStableAcrossRuns(t *testing.T) {
	p := NewPlanner(testDeps(t, &fakeConfirmer{}))

	first, err := p.Plan(context.Background(), state.ClusterPresent, IntentModify, Options{})
	require.NoError(t, err)
	second, err := p.Plan(context.Background(), state.ClusterPresent, IntentModify, Options{})
	require.NoError(t, err)

	assert.Equal(t, stepNames(first), stepNames(second))
	assert.Equal(t, -1, indexOf(stepNames(first), "cluster-init"))
}

func TestPlan_DestroyWithoutConfirmation(t *testing.T) {
	confirm := &fakeConfirmer{typedAnswer: false}
	p := NewPlanner(testDeps(t, confirm))

	plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentDestroy, Options{})
	assert.ErrorIs(t, err, ErrUserAborted)
	assert.Nil(t, plan)
	// The gate was a typed confirmation, not a y/n.
	assert.Equal(t, []string{DestroyToken}, confirm.typedTokens)
}

func TestPlan_DestroyConfirmed(t *testing.T) {
	confirm := &fakeConfirmer{typedAnswer: true}
	p := NewPlanner(testDeps(t, confirm))

	plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentDestroy, Options{})
	require.NoError(t, err)

	names := stepNames(plan)
	reset := indexOf(names, "cluster-reset")
	cleanup := indexOf(names, "remove cluster credentials")
	stop := indexOf(names, "stop kubelet")
	require.NotEqual(t, -1, reset)
	assert.Less(t, reset, cleanup)
	assert.Less(t, cleanup, stop)
	assert.True(t, plan.Steps[reset].Critical)
	assert.False(t, plan.Steps[stop].Critical)
}

func TestPlan_DestroyOnFreshNode(t *testing.T) {
	p := NewPlanner(testDeps(t, &fakeConfirmer{typedAnswer: true}))

	_, err := p.Plan(context.Background(), state.Uninitialized, IntentDestroy, Options{})
	assert.True(t, IsPrecondition(err))
}

func TestPlan_InstallApps(t *testing.T) {
	t.Run("unknown app", func(t *testing.T) {
		p := NewPlanner(testDeps(t, &fakeConfirmer{}))
		_, err := p.Plan(context.Background(), state.ClusterPresent, IntentInstallApps, Options{Apps: []string{"no-such-app"}})
		assert.True(t, IsPrecondition(err))
	})

	t.Run("unreachable api", func(t *testing.T) {
		p := NewPlanner(testDeps(t, &fakeConfirmer{}))
		_, err := p.Plan(context.Background(), state.PartiallyConfigured, IntentInstallApps, Options{Apps: []string{"portainer"}})
		assert.True(t, IsPrecondition(err))
	})

	t.Run("steps are optional per app", func(t *testing.T) {
		p := NewPlanner(testDeps(t, &fakeConfirmer{}))
		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentInstallApps, Options{Apps: []string{"portainer", "nextcloud"}})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 2)
		for _, s := range plan.Steps {
			assert.False(t, s.Critical)
		}
	})
}

func TestPlan_UninstallApps(t *testing.T) {
	detected := []state.ManagedApp{
		{Name: "portainer", Namespace: "portainer", Ownership: state.OwnershipVerified},
		{Name: "nextcloud", Namespace: "nextcloud", Ownership: state.OwnershipUnverified},
	}

	t.Run("verified app needs one confirm", func(t *testing.T) {
		confirm := &fakeConfirmer{confirmAnswer: true}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentUninstallApps,
			Options{Apps: []string{"portainer"}, Detected: detected})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 1)
		assert.Len(t, confirm.confirmPrompts, 1)
		assert.Empty(t, confirm.typedPrompts)
	})

	t.Run("unverified ownership needs extra typed confirm", func(t *testing.T) {
		confirm := &fakeConfirmer{confirmAnswer: true, typedAnswer: true}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentUninstallApps,
			Options{Apps: []string{"nextcloud"}, Detected: detected})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 1)
		// The extra gate requires typing the namespace.
		assert.Equal(t, []string{"nextcloud"}, confirm.typedTokens)
	})

	t.Run("declined gate skips the app", func(t *testing.T) {
		confirm := &fakeConfirmer{confirmAnswer: false}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentUninstallApps,
			Options{Apps: []string{"portainer"}, Detected: detected})
		require.NoError(t, err)
		assert.Empty(t, plan.Steps)
	})

	t.Run("data deletion confirmed separately", func(t *testing.T) {
		confirm := &fakeConfirmer{confirmAnswer: true, typedAnswer: true}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentUninstallApps,
			Options{Apps: []string{"portainer"}, Detected: detected, DeleteData: true})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 1)
		// One typed gate for the data, none for verified ownership.
		assert.Equal(t, []string{"portainer"}, confirm.typedTokens)
	})

	t.Run("app not installed is skipped", func(t *testing.T) {
		confirm := &fakeConfirmer{confirmAnswer: true}
		p := NewPlanner(testDeps(t, confirm))

		plan, err := p.Plan(context.Background(), state.ClusterPresent, IntentUninstallApps,
			Options{Apps: []string{"portainer"}, Detected: nil})
		require.NoError(t, err)
		assert.Empty(t, plan.Steps)
		assert.Empty(t, confirm.confirmPrompts)
	})
}

func TestPlan_StartStop(t *testing.T) {
	p := NewPlanner(testDeps(t, &fakeConfirmer{}))

	start, err := p.Plan(context.Background(), state.ClusterPresent, IntentStart, Options{})
	require.NoError(t, err)
	names := stepNames(start)
	assert.Less(t, indexOf(names, "start container runtime"), indexOf(names, "start kubelet"))
	assert.Equal(t, "wait for node ready", names[len(names)-1])

	stop, err := p.Plan(context.Background(), state.ClusterPresent, IntentStop, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"stop kubelet", "stop container runtime"}, stepNames(stop))

	_, err = p.Plan(context.Background(), state.Uninitialized, IntentStart, Options{})
	assert.True(t, IsPrecondition(err))
}

func TestParseIntent(t *testing.T) {
	intent, err := ParseIntent("destroy")
	require.NoError(t, err)
	assert.Equal(t, IntentDestroy, intent)

	_, err = ParseIntent("frobnicate")
	assert.Error(t, err)
}
