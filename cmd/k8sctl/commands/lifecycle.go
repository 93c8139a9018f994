package commands

import (
	"github.com/spf13/cobra"

	"github.com/fabriziosalmi/k8s/cmd/k8sctl/handlers"
)

// Modify returns the modify command.
//
// Modify re-applies the desired configuration to an existing cluster
// without tearing it down: CNI manifest, control-plane taint, and the
// optional addons from the configuration.
func Modify() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Re-apply configuration to an existing cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Modify(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")

	return cmd
}

// Start returns the start command.
func Start() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the container runtime and kubelet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Start(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")

	return cmd
}

// Stop returns the stop command.
func Stop() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the kubelet and container runtime",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Stop(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")

	return cmd
}

// Destroy returns the destroy command.
//
// Destroy tears the cluster down with kubeadm reset and removes the
// residual configuration. It requires a typed confirmation unless --yes
// is given.
func Destroy() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down the cluster on this machine",
		Long: `Destroy runs kubeadm reset and removes residual cluster state:
kubeconfig files, CNI configuration, and the manifest directory.

WARNING: This operation is irreversible. All cluster workloads and their
data will be lost. You will be asked to type "destroy" to confirm.

Example:
  k8sctl destroy`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompts")

	return cmd
}

// Status returns the status command. Status is read-only; it never
// mutates node or cluster state.
func Status() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show node state and managed applications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional)")

	return cmd
}
