package apps

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fabriziosalmi/k8s/internal/config"
)

// HelmOps is the chart-management surface the manager needs. Implemented
// by the k8s helm client.
type HelmOps interface {
	InstallOrUpgrade(namespace, releaseName, repoURL, chartName, version string, values map[string]interface{}) error
	Uninstall(namespace, releaseName string) error
}

// ClusterClient is the subset of typed cluster operations the manager
// needs. Implemented by the k8s client.
type ClusterClient interface {
	EnsureNamespace(ctx context.Context, name string, labels map[string]string) error
	DeleteNamespace(ctx context.Context, name string) error
	DeletePVCs(ctx context.Context, namespace string, names []string) error
	DeletePVsBySuffix(ctx context.Context, suffixes []string) error
	WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) error
	ServiceAccountToken(ctx context.Context, namespace, name string) (string, error)
}

// Manager installs and uninstalls catalogue applications via Helm.
type Manager struct {
	helm      HelmOps
	cluster   ClusterClient
	timeouts  config.Timeouts
	tokenFile string
}

// NewManager creates an application manager.
func NewManager(helm HelmOps, cluster ClusterClient, timeouts config.Timeouts, tokenFile string) *Manager {
	return &Manager{
		helm:      helm,
		cluster:   cluster,
		timeouts:  timeouts,
		tokenFile: tokenFile,
	}
}

// Install installs a catalogue application. Re-running against an
// installed application upgrades it in place.
func (m *Manager) Install(ctx context.Context, name string) error {
	def, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown application %q", name)
	}

	labels := map[string]string{config.ManagedByLabel: config.ManagedByValue}
	if err := m.cluster.EnsureNamespace(ctx, def.Namespace, labels); err != nil {
		return fmt.Errorf("failed to prepare namespace %s: %w", def.Namespace, err)
	}

	values, err := def.HelmValues()
	if err != nil {
		return err
	}
	if err := m.helm.InstallOrUpgrade(def.Namespace, def.ReleaseName, def.RepoURL, def.Chart, def.Version, values); err != nil {
		return fmt.Errorf("failed to install %s: %w", def.Name, err)
	}

	if def.Deployment != "" {
		if err := m.cluster.WaitForDeployment(ctx, def.Namespace, def.Deployment, m.timeouts.DeployReady); err != nil {
			return fmt.Errorf("%s did not become ready: %w", def.Name, err)
		}
	}

	if def.TokenAccount != "" {
		if err := m.writeAccessToken(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall removes a catalogue application. With deleteData the
// application's persistent volume claims and volumes are removed too.
func (m *Manager) Uninstall(ctx context.Context, name string, deleteData bool) error {
	def, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown application %q", name)
	}

	if err := m.helm.Uninstall(def.Namespace, def.ReleaseName); err != nil {
		return fmt.Errorf("failed to uninstall %s: %w", def.Name, err)
	}

	if deleteData && len(def.PVCNames) > 0 {
		if err := m.cluster.DeletePVCs(ctx, def.Namespace, def.PVCNames); err != nil {
			return fmt.Errorf("failed to delete claims for %s: %w", def.Name, err)
		}
	}

	if err := m.cluster.DeleteNamespace(ctx, def.Namespace); err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", def.Namespace, err)
	}

	if deleteData && len(def.PVSuffixes) > 0 {
		if err := m.cluster.DeletePVsBySuffix(ctx, def.PVSuffixes); err != nil {
			return fmt.Errorf("failed to delete volumes for %s: %w", def.Name, err)
		}
	}
	return nil
}

func (m *Manager) writeAccessToken(ctx context.Context, def Definition) error {
	token, err := m.cluster.ServiceAccountToken(ctx, def.Namespace, def.TokenAccount)
	if err != nil {
		return fmt.Errorf("failed to request %s token: %w", def.Name, err)
	}
	if err := os.WriteFile(m.tokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
