package system

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// dbusConn is the slice of the systemd D-Bus API the manager uses.
// Satisfied by *dbus.Conn; swapped in tests.
type dbusConn interface {
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	EnableUnitFilesContext(ctx context.Context, files []string, runtime bool, force bool) (bool, []dbus.EnableUnitFileChange, error)
	Close()
}

var newConn = func(ctx context.Context) (dbusConn, error) {
	return dbus.NewSystemdConnectionContext(ctx)
}

// SystemdManager controls systemd units over the system bus. It
// implements the unit-manager port used by plan steps.
type SystemdManager struct{}

// NewSystemdManager creates a systemd unit manager.
func NewSystemdManager() *SystemdManager {
	return &SystemdManager{}
}

// StartUnit starts a unit and waits for the job to finish.
func (m *SystemdManager) StartUnit(ctx context.Context, name string) error {
	conn, err := newConn(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	ch := make(chan string, 1)
	if _, err := conn.StartUnitContext(ctx, name, "replace", ch); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return waitJob(ctx, name, ch)
}

// StopUnit stops a unit and waits for the job to finish.
func (m *SystemdManager) StopUnit(ctx context.Context, name string) error {
	conn, err := newConn(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	ch := make(chan string, 1)
	if _, err := conn.StopUnitContext(ctx, name, "replace", ch); err != nil {
		return fmt.Errorf("failed to stop %s: %w", name, err)
	}
	return waitJob(ctx, name, ch)
}

// EnableUnit enables a unit so it starts on boot.
func (m *SystemdManager) EnableUnit(ctx context.Context, name string) error {
	conn, err := newConn(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{name}, false, true); err != nil {
		return fmt.Errorf("failed to enable %s: %w", name, err)
	}
	return nil
}

func waitJob(ctx context.Context, name string, ch <-chan string) error {
	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("job for %s finished with result %q", name, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
