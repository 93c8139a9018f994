package state

import (
	"context"
	"fmt"

	"github.com/fabriziosalmi/k8s/internal/config"
)

// Ownership reports whether a namespace carries the managed-by marker.
type Ownership int

const (
	// OwnershipVerified means the namespace bears the marker label.
	OwnershipVerified Ownership = iota
	// OwnershipUnverified means the namespace exists without the marker;
	// it may have been created by an earlier tool version or other
	// tooling. Destructive actions must warn before touching it.
	OwnershipUnverified
)

func (o Ownership) String() string {
	if o == OwnershipVerified {
		return "verified"
	}
	return "unverified"
}

// AppRef names a catalogue application and its namespace.
type AppRef struct {
	Name      string
	Namespace string
}

// ManagedApp is a catalogue application whose namespace exists on the
// cluster.
type ManagedApp struct {
	Name      string
	Namespace string
	Ownership Ownership
}

// NamespaceGetter queries namespace existence and labels. Implemented by
// the k8s client.
type NamespaceGetter interface {
	NamespaceLabels(ctx context.Context, name string) (labels map[string]string, exists bool, err error)
}

// DetectManagedApps reports which catalogue applications currently have a
// namespace on the cluster. Namespaces present without the managed-by
// marker are still reported, flagged as unverified, so callers can warn
// before destructive action. The cluster is authoritative; results are
// never cached across invocations.
func DetectManagedApps(ctx context.Context, g NamespaceGetter, refs []AppRef) ([]ManagedApp, error) {
	var found []ManagedApp
	for _, ref := range refs {
		labels, ok, err := g.NamespaceLabels(ctx, ref.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to query namespace %s: %w", ref.Namespace, err)
		}
		if !ok {
			continue
		}

		ownership := OwnershipUnverified
		if labels[config.ManagedByLabel] == config.ManagedByValue {
			ownership = OwnershipVerified
		}
		found = append(found, ManagedApp{
			Name:      ref.Name,
			Namespace: ref.Namespace,
			Ownership: ownership,
		})
	}
	return found, nil
}
