package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	k8stesting "k8s.io/client-go/testing"

	"github.com/fabriziosalmi/k8s/internal/config"
	"github.com/fabriziosalmi/k8s/internal/plan"
)

func TestInstallAppsUnknownApp(t *testing.T) {
	f := newFixture(t)
	f.writeKubeconfig(t)

	err := InstallApps(context.Background(), "", true, []string{"minecraft"})
	require.Error(t, err)
	assert.True(t, plan.IsPrecondition(err))
}

func TestInstallAppsUninitialized(t *testing.T) {
	newFixture(t)

	err := InstallApps(context.Background(), "", true, []string{"portainer"})
	require.Error(t, err)
	assert.True(t, plan.IsPrecondition(err))
}

func TestUninstallAppsDeclinedSkips(t *testing.T) {
	f := newFixture(t)
	f.writeKubeconfig(t)
	f.createNamespace(t, "portainer", map[string]string{
		config.ManagedByLabel: config.ManagedByValue,
	})
	f.confirmer.confirm = false

	require.NoError(t, UninstallApps(context.Background(), "", true, false, []string{"portainer"}))
	require.Len(t, f.confirmer.prompts, 1)
	assert.Contains(t, f.confirmer.prompts[0], "portainer")
}

func TestUninstallAppsQueryFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.writeKubeconfig(t)
	f.clientset.PrependReactor("get", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("namespaces is forbidden")
	})

	// A failed ownership query must abort, never read as "not installed".
	err := UninstallApps(context.Background(), "", true, false, []string{"portainer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "managed applications")
	assert.Empty(t, f.confirmer.prompts)
}

func TestUninstallAppsNotInstalled(t *testing.T) {
	f := newFixture(t)
	f.writeKubeconfig(t)

	// No namespace exists, so there is nothing to confirm or do.
	require.NoError(t, UninstallApps(context.Background(), "", true, false, []string{"portainer"}))
	assert.Empty(t, f.confirmer.prompts)
}
