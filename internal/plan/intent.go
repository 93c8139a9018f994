// Package plan maps a detected node state and a user intent to an
// ordered plan of idempotent steps. Plan construction is pure: building
// a plan performs no side effects beyond confirmation prompts, and every
// precondition violation is rejected here, before any step executes.
package plan

import "fmt"

// Intent is the user-requested operation. It is supplied once per
// invocation and immutable during execution.
type Intent string

const (
	IntentInit          Intent = "init"
	IntentResetAndInit  Intent = "reset-and-init"
	IntentModify        Intent = "modify"
	IntentStart         Intent = "start"
	IntentStop          Intent = "stop"
	IntentDestroy       Intent = "destroy"
	IntentStatus        Intent = "status"
	IntentInstallApps   Intent = "install-apps"
	IntentUninstallApps Intent = "uninstall-apps"
)

// ParseIntent validates an intent string from the CLI surface.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentInit, IntentResetAndInit, IntentModify, IntentStart,
		IntentStop, IntentDestroy, IntentStatus, IntentInstallApps,
		IntentUninstallApps:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("unknown intent: %q", s)
	}
}
