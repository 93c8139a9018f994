// Package main is the entry point for the k8sctl CLI.
//
// k8sctl manages the lifecycle of a single-node Kubernetes cluster on
// the machine it runs on: initialization, start/stop, destruction, and
// a small catalogue of installable applications. It detects the node's
// current configuration state before every operation and plans an
// ordered sequence of idempotent steps from it.
//
// Commands: init, modify, start, stop, status, destroy, apps.
//
// For detailed usage information, run:
//
//	k8sctl --help
package main

import (
	"fmt"
	"os"

	"github.com/fabriziosalmi/k8s/cmd/k8sctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
