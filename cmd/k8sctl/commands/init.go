package commands

import (
	"github.com/spf13/cobra"

	"github.com/fabriziosalmi/k8s/cmd/k8sctl/handlers"
)

// Init returns the init command.
//
// Init bootstraps a single-node cluster on this machine: kernel
// prerequisites, container runtime, kubeadm init, CNI, and control-plane
// scheduling. Steps are idempotent; re-running init on a healthy node
// skips work that is already done.
func Init() *cobra.Command {
	var (
		configPath string
		yes        bool
		reset      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a single-node Kubernetes cluster",
		Long: `Init bootstraps a single-node Kubernetes cluster on this machine.

The full sequence: disable swap, load kernel modules, configure sysctl,
install kubeadm/kubelet/kubectl and containerd, run kubeadm init, apply
the CNI manifest, untaint the control-plane node, and wait for node
readiness.

If an existing cluster configuration is detected, init asks whether to
destroy and re-initialize, modify in place, or abort. With --reset the
existing cluster is torn down first (after a typed confirmation).

Example:
  k8sctl init
  k8sctl init --reset --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), configPath, yes, reset)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.Flags().BoolVar(&reset, "reset", false, "Tear down any existing cluster before initializing")

	return cmd
}
