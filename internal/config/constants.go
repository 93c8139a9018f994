package config

// Well-known paths and defaults for a single-node kubeadm deployment.
const (
	// DefaultAdminKubeconfig is where kubeadm init writes cluster-admin
	// credentials.
	DefaultAdminKubeconfig = "/etc/kubernetes/admin.conf"

	// DefaultManifestDir holds the control-plane static pod manifests.
	DefaultManifestDir = "/etc/kubernetes/manifests"

	// DefaultStateDir receives per-run command logs.
	DefaultStateDir = "/var/lib/k8sctl"

	// DefaultDashboardTokenFile stores the dashboard access token.
	DefaultDashboardTokenFile = "/root/.k8s-dashboard-token"

	DefaultKubernetesVersion = "1.30"
	DefaultPodNetworkCIDR    = "192.168.0.0/16"
	DefaultCNIManifestURL    = "https://raw.githubusercontent.com/projectcalico/calico/v3.28.0/manifests/calico.yaml"
)

// ManagedByLabel marks cluster resources created by this tool. The app
// uninstall path only treats namespaces bearing this label as verified
// tool-owned.
const (
	ManagedByLabel = "app.kubernetes.io/managed-by"
	ManagedByValue = "k8sctl"
)
