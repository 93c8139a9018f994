// Package state classifies the node's Kubernetes configuration and
// detects tool-managed application namespaces. Detection is read-only;
// it never mutates cluster or filesystem state, and it is re-run after
// every mutating step rather than cached.
package state

import (
	"context"
	"os"

	"github.com/fabriziosalmi/k8s/internal/config"
)

// NodeState classifies the node's Kubernetes configuration.
type NodeState int

const (
	// Uninitialized means no kubeconfig and no manifest directory exist.
	Uninitialized NodeState = iota
	// ClusterPresent means a kubeconfig and/or manifest directory exist.
	ClusterPresent
	// PartiallyConfigured means a kubeconfig exists but the API is
	// unreachable.
	PartiallyConfigured
)

func (s NodeState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ClusterPresent:
		return "cluster-present"
	case PartiallyConfigured:
		return "partially-configured"
	default:
		return "unknown"
	}
}

// Pinger probes API server reachability. Implemented by the k8s client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Detector inspects well-known paths and, optionally, the cluster API.
type Detector struct {
	paths config.Paths
	ping  Pinger
}

// NewDetector returns a detector for the given paths. ping may be nil;
// Detect then behaves like DetectLocal.
func NewDetector(paths config.Paths, ping Pinger) *Detector {
	return &Detector{paths: paths, ping: ping}
}

// DetectLocal classifies the node from filesystem existence checks only.
// No network call is made. All failures resolve to a state value: a
// kubeconfig that exists but cannot be read still counts as present
// (conservative), while a check that cannot even stat its path counts
// as absent.
func (d *Detector) DetectLocal() NodeState {
	kubeconfig := exists(d.paths.AdminKubeconfig)
	manifests := exists(d.paths.ManifestDir)

	if kubeconfig || manifests {
		return ClusterPresent
	}
	return Uninitialized
}

// Detect classifies the node, upgrading ClusterPresent to
// PartiallyConfigured when the kubeconfig exists but the API server does
// not answer.
func (d *Detector) Detect(ctx context.Context) NodeState {
	st := d.DetectLocal()
	if st != ClusterPresent || d.ping == nil {
		return st
	}
	if !exists(d.paths.AdminKubeconfig) {
		// Manifest dir without a kubeconfig: nothing to probe with.
		return st
	}
	if err := d.ping.Ping(ctx); err != nil {
		return PartiallyConfigured
	}
	return ClusterPresent
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
