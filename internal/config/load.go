package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Default returns a configuration populated with the hardcoded defaults.
// This is the configuration used when no file is supplied.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/root"
	}

	return &Config{
		KubernetesVersion: DefaultKubernetesVersion,
		PodNetworkCIDR:    DefaultPodNetworkCIDR,
		CNIManifestURL:    DefaultCNIManifestURL,
		Paths: Paths{
			AdminKubeconfig:    DefaultAdminKubeconfig,
			UserKubeconfig:     filepath.Join(home, ".kube", "config"),
			ManifestDir:        DefaultManifestDir,
			StateDir:           DefaultStateDir,
			DashboardTokenFile: DefaultDashboardTokenFile,
		},
		Features: Features{
			Dashboard: true,
		},
	}
}

// LoadFile reads configuration from a YAML file, layering it over the
// defaults. Keys absent from the file keep their default values; this is
// a simple override, not a validated schema.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if err := mapstructure.Decode(rawConfig, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
