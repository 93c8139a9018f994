// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated
// to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the k8sctl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "k8sctl",
		Short: "Manage a single-node Kubernetes cluster on this machine",
		Long: `k8sctl manages the lifecycle of a single-node Kubernetes cluster:
initialization, start/stop, teardown, and a small catalogue of
installable applications.

k8sctl assumes a single operator. It takes no lock; if two invocations
run at the same time, the Kubernetes API is the only thing serializing
their conflicting mutations.`,
	}

	// Lifecycle commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Modify())
	cmd.AddCommand(Start())
	cmd.AddCommand(Stop())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Status())

	// Applications and utilities
	cmd.AddCommand(Apps())
	cmd.AddCommand(Version())

	return cmd
}
