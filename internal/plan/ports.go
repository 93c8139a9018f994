package plan

import (
	"context"
	"errors"
	"fmt"
)

// ErrUserAborted is returned when the user declines a confirmation gate.
var ErrUserAborted = errors.New("aborted by user")

// PreconditionError reports a violated intent precondition. It is raised
// at the planner boundary, before any step executes.
type PreconditionError struct {
	Intent Intent
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Intent, e.Reason)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// Confirmer is the confirmation-gate port. The interactive
// implementation prompts on the terminal; scripted callers inject a
// pre-confirmed implementation. Destructive actions use ConfirmTyped,
// which requires the user to type an explicit token rather than a
// blanket y/n.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
	ConfirmTyped(ctx context.Context, prompt, token string) (bool, error)
	Choose(ctx context.Context, prompt string, options []string) (string, error)
}

// ClusterOps is the subset of typed cluster operations plan steps need.
// Implemented by the k8s client.
type ClusterOps interface {
	NodeReady(ctx context.Context, name string) (bool, error)
	DeploymentReady(ctx context.Context, namespace, name string) (bool, error)
	ApplyManifestURL(ctx context.Context, url string) error
	UntaintControlPlane(ctx context.Context) error
}

// ClusterFunc lazily yields cluster operations. Steps that run after
// cluster-init cannot build a client at plan-construction time because
// the kubeconfig does not exist yet.
type ClusterFunc func(ctx context.Context) (ClusterOps, error)

// UnitManager controls systemd units for the container runtime and
// kubelet.
type UnitManager interface {
	StartUnit(ctx context.Context, name string) error
	StopUnit(ctx context.Context, name string) error
	EnableUnit(ctx context.Context, name string) error
}

// AppManager installs and uninstalls catalogue applications.
type AppManager interface {
	Install(ctx context.Context, name string) error
	Uninstall(ctx context.Context, name string, deleteData bool) error
}
