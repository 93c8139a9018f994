package apps

import (
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/fabriziosalmi/k8s/internal/state"
)

// Definition describes one installable catalogue application.
type Definition struct {
	Name        string
	Namespace   string
	ReleaseName string
	RepoURL     string
	Chart       string
	Version     string

	// ValuesYAML holds the chart value overrides in the format they are
	// usually authored in.
	ValuesYAML string

	// Deployment to wait on after install. Empty skips the readiness
	// wait.
	Deployment string

	// TokenAccount names a service account whose bearer token is written
	// to the configured token file after install. Used by the dashboard.
	TokenAccount string

	// PVCNames and PVSuffixes identify the application's persistent data
	// for delete-data uninstalls.
	PVCNames   []string
	PVSuffixes []string
}

var catalogue = map[string]Definition{
	"portainer": {
		Name:        "portainer",
		Namespace:   "portainer",
		ReleaseName: "portainer",
		RepoURL:     "https://portainer.github.io/k8s/",
		Chart:       "portainer",
		Deployment:  "portainer",
		ValuesYAML: `
service:
  type: NodePort
`,
		PVCNames:   []string{"portainer"},
		PVSuffixes: []string{"-portainer"},
	},
	"nextcloud": {
		Name:        "nextcloud",
		Namespace:   "nextcloud",
		ReleaseName: "nextcloud",
		RepoURL:     "https://nextcloud.github.io/helm/",
		Chart:       "nextcloud",
		Deployment:  "nextcloud",
		ValuesYAML: `
persistence:
  enabled: true
`,
		PVCNames:   []string{"nextcloud-nextcloud"},
		PVSuffixes: []string{"-nextcloud"},
	},
	"dashboard": {
		Name:         "dashboard",
		Namespace:    "kubernetes-dashboard",
		ReleaseName:  "kubernetes-dashboard",
		RepoURL:      "https://kubernetes.github.io/dashboard/",
		Chart:        "kubernetes-dashboard",
		TokenAccount: "kubernetes-dashboard",
	},
	"metrics-server": {
		Name:        "metrics-server",
		Namespace:   "metrics-server",
		ReleaseName: "metrics-server",
		RepoURL:     "https://kubernetes-sigs.github.io/metrics-server/",
		Chart:       "metrics-server",
		Deployment:  "metrics-server",
		ValuesYAML: `
args:
  - --kubelet-insecure-tls
`,
	},
}

// HelmValues decodes the definition's value overrides into the map form
// the Helm SDK takes.
func (d Definition) HelmValues() (map[string]interface{}, error) {
	if d.ValuesYAML == "" {
		return nil, nil
	}
	var values map[string]interface{}
	if err := yaml.Unmarshal([]byte(d.ValuesYAML), &values); err != nil {
		return nil, fmt.Errorf("invalid values for %s: %w", d.Name, err)
	}
	return values, nil
}

// Lookup returns the catalogue definition for name.
func Lookup(name string) (Definition, bool) {
	def, ok := catalogue[name]
	return def, ok
}

// Known reports whether name is a catalogue application.
func Known(name string) bool {
	_, ok := catalogue[name]
	return ok
}

// Names returns all catalogue application names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refs returns catalogue applications as name/namespace references for
// cluster-side detection.
func Refs() []state.AppRef {
	refs := make([]state.AppRef, 0, len(catalogue))
	for _, name := range Names() {
		def := catalogue[name]
		refs = append(refs, state.AppRef{Name: def.Name, Namespace: def.Namespace})
	}
	return refs
}
