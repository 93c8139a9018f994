package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/fabriziosalmi/k8s/internal/config"
	"github.com/fabriziosalmi/k8s/internal/executor"
	"github.com/fabriziosalmi/k8s/internal/k8s"
	"github.com/fabriziosalmi/k8s/internal/plan"
)

type fakeRunner struct {
	commands [][]string
}

func (f *fakeRunner) Run(_ context.Context, argv []string) (executor.Output, error) {
	f.commands = append(f.commands, argv)
	return executor.Output{ExitCode: 0}, nil
}

type fakeUnits struct {
	started []string
	stopped []string
	enabled []string
}

func (f *fakeUnits) StartUnit(_ context.Context, name string) error {
	f.started = append(f.started, name)
	return nil
}

func (f *fakeUnits) StopUnit(_ context.Context, name string) error {
	f.stopped = append(f.stopped, name)
	return nil
}

func (f *fakeUnits) EnableUnit(_ context.Context, name string) error {
	f.enabled = append(f.enabled, name)
	return nil
}

type fakeConfirmer struct {
	confirm     bool
	typed       bool
	choice      string
	prompts     []string
	typedTokens []string
}

func (f *fakeConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	f.prompts = append(f.prompts, prompt)
	return f.confirm, nil
}

func (f *fakeConfirmer) ConfirmTyped(_ context.Context, prompt, token string) (bool, error) {
	f.prompts = append(f.prompts, prompt)
	f.typedTokens = append(f.typedTokens, token)
	return f.typed, nil
}

func (f *fakeConfirmer) Choose(_ context.Context, prompt string, options []string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.choice != "" {
		return f.choice, nil
	}
	return options[len(options)-1], nil
}

// testFixture swaps all handler factories for fakes and returns them.
// The node looks uninitialized until writeKubeconfig is called.
type testFixture struct {
	cfg       *config.Config
	runner    *fakeRunner
	units     *fakeUnits
	confirmer *fakeConfirmer
	clientset *fake.Clientset
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.AdminKubeconfig = filepath.Join(dir, "admin.conf")
	cfg.Paths.UserKubeconfig = filepath.Join(dir, "kubeconfig")
	cfg.Paths.ManifestDir = filepath.Join(dir, "manifests")
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Paths.DashboardTokenFile = filepath.Join(dir, "dashboard-token")

	f := &testFixture{
		cfg:       cfg,
		runner:    &fakeRunner{},
		units:     &fakeUnits{},
		confirmer: &fakeConfirmer{},
		clientset: fake.NewSimpleClientset(),
	}

	origLoad := loadConfig
	origConfirm := newConfirmer
	origRunner := newRunner
	origUnits := newUnitManager
	origClient := newClusterClient
	t.Cleanup(func() {
		loadConfig = origLoad
		newConfirmer = origConfirm
		newRunner = origRunner
		newUnitManager = origUnits
		newClusterClient = origClient
	})

	loadConfig = func(string) (*config.Config, error) { return f.cfg, nil }
	newConfirmer = func(bool) (plan.Confirmer, error) { return f.confirmer, nil }
	newRunner = func() executor.Runner { return f.runner }
	newUnitManager = func() plan.UnitManager { return f.units }
	newClusterClient = func(string) (*k8s.Client, error) {
		return k8s.NewFromClientset(f.clientset), nil
	}

	return f
}

func (f *testFixture) writeKubeconfig(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.cfg.Paths.AdminKubeconfig, []byte("apiVersion: v1\nkind: Config\n"), 0o600))
}

func (f *testFixture) createNamespace(t *testing.T, name string, labels map[string]string) {
	t.Helper()
	_, err := f.clientset.CoreV1().Namespaces().Create(context.Background(), &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
	}, metav1.CreateOptions{})
	require.NoError(t, err)
}
