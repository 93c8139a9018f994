// Package config holds the configuration surface for the k8sctl tool:
// well-known paths, version pins, feature toggles, and timeout/retry
// budgets. Configuration is loaded once at startup and passed explicitly
// to every component; no package reads ambient state after that.
package config

import (
	"fmt"
	"net"
	"strings"
)

// Config is the top-level configuration object.
type Config struct {
	// KubernetesVersion is the minor version used for the package
	// repository and the kubeadm bootstrap (e.g. "1.30").
	KubernetesVersion string `mapstructure:"kubernetes_version"`

	// PodNetworkCIDR is passed to kubeadm init and must match the CNI
	// manifest's expectations.
	PodNetworkCIDR string `mapstructure:"pod_network_cidr"`

	// NodeName overrides the node name used for readiness checks.
	// Empty means the OS hostname.
	NodeName string `mapstructure:"node_name"`

	// CNIManifestURL is the remote manifest applied after bootstrap.
	CNIManifestURL string `mapstructure:"cni_manifest_url"`

	Paths    Paths    `mapstructure:"paths"`
	Features Features `mapstructure:"features"`
}

// Paths groups the well-known filesystem locations the tool inspects
// and writes. The detector's node-state classification is defined in
// terms of these paths.
type Paths struct {
	// AdminKubeconfig is created by kubeadm init.
	AdminKubeconfig string `mapstructure:"admin_kubeconfig"`

	// UserKubeconfig is the copy installed for the invoking user.
	UserKubeconfig string `mapstructure:"user_kubeconfig"`

	// ManifestDir is the static pod manifest directory; its presence
	// marks a node that has been (at least partially) initialized.
	ManifestDir string `mapstructure:"manifest_dir"`

	// StateDir receives per-run log files for mutating commands.
	StateDir string `mapstructure:"state_dir"`

	// DashboardTokenFile stores the generated dashboard access token,
	// owner-only readable.
	DashboardTokenFile string `mapstructure:"dashboard_token_file"`
}

// Features toggles the optional extras installed at the end of an init
// or modify plan. A failure in any of these downgrades to a warning.
type Features struct {
	Dashboard     bool `mapstructure:"dashboard"`
	MetricsServer bool `mapstructure:"metrics_server"`
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.KubernetesVersion == "" {
		return fmt.Errorf("kubernetes_version is required")
	}
	if parts := strings.Split(c.KubernetesVersion, "."); len(parts) != 2 {
		return fmt.Errorf("kubernetes_version must be a minor version like %q, got %q", "1.30", c.KubernetesVersion)
	}
	if _, _, err := net.ParseCIDR(c.PodNetworkCIDR); err != nil {
		return fmt.Errorf("pod_network_cidr is invalid: %w", err)
	}
	if c.CNIManifestURL == "" {
		return fmt.Errorf("cni_manifest_url is required")
	}
	if c.Paths.AdminKubeconfig == "" || c.Paths.ManifestDir == "" {
		return fmt.Errorf("paths.admin_kubeconfig and paths.manifest_dir are required")
	}
	return nil
}
