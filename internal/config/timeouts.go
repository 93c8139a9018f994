package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout and retry values.
// These values can be customized via environment variables.
type Timeouts struct {
	NodeReady         time.Duration // Timeout for node readiness after bootstrap
	DeployReady       time.Duration // Timeout for deployment/pod readiness waits
	ClusterInit       time.Duration // Timeout for kubeadm init
	ClusterReset      time.Duration // Timeout for kubeadm reset
	Command           time.Duration // Default timeout for plain command steps
	PollInterval      time.Duration // Polling interval for readiness waits
	RetryMaxAttempts  int           // Attempt budget for transient failures
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - K8SCTL_TIMEOUT_NODE_READY (default: 5m)
//   - K8SCTL_TIMEOUT_DEPLOY_READY (default: 5m)
//   - K8SCTL_TIMEOUT_CLUSTER_INIT (default: 10m)
//   - K8SCTL_TIMEOUT_CLUSTER_RESET (default: 5m)
//   - K8SCTL_TIMEOUT_COMMAND (default: 3m)
//   - K8SCTL_POLL_INTERVAL (default: 5s)
//   - K8SCTL_RETRY_MAX_ATTEMPTS (default: 3)
//   - K8SCTL_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		NodeReady:         parseDuration("K8SCTL_TIMEOUT_NODE_READY", 5*time.Minute),
		DeployReady:       parseDuration("K8SCTL_TIMEOUT_DEPLOY_READY", 5*time.Minute),
		ClusterInit:       parseDuration("K8SCTL_TIMEOUT_CLUSTER_INIT", 10*time.Minute),
		ClusterReset:      parseDuration("K8SCTL_TIMEOUT_CLUSTER_RESET", 5*time.Minute),
		Command:           parseDuration("K8SCTL_TIMEOUT_COMMAND", 3*time.Minute),
		PollInterval:      parseDuration("K8SCTL_POLL_INTERVAL", 5*time.Second),
		RetryMaxAttempts:  parseInt("K8SCTL_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("K8SCTL_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
