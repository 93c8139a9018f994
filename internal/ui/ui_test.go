package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriziosalmi/k8s/internal/state"
)

func TestPreConfirmed(t *testing.T) {
	ctx := context.Background()
	c := PreConfirmed{}

	ok, err := c.Confirm(ctx, "proceed?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ConfirmTyped(ctx, "destroy it all", "destroy")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPreConfirmedChoosePicksLastOption(t *testing.T) {
	c := PreConfirmed{}
	choice, err := c.Choose(context.Background(), "how?", []string{"destroy", "modify", "abort"})
	require.NoError(t, err)
	assert.Equal(t, "abort", choice)
}

func TestPreConfirmedChooseNoOptions(t *testing.T) {
	c := PreConfirmed{}
	_, err := c.Choose(context.Background(), "how?", nil)
	assert.Error(t, err)
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	RenderStatus(&buf, StatusReport{
		NodeState:    state.ClusterPresent,
		NodeName:     "node-1",
		Kubeconfig:   "/etc/kubernetes/admin.conf",
		APIReachable: true,
		Apps: []state.ManagedApp{
			{Name: "portainer", Namespace: "portainer", Ownership: state.OwnershipVerified},
			{Name: "nextcloud", Namespace: "nextcloud", Ownership: state.OwnershipUnverified},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "cluster-present")
	assert.Contains(t, out, "node-1")
	assert.Contains(t, out, "reachable")
	assert.Contains(t, out, "portainer")
	assert.Contains(t, out, "unverified")
}

func TestRenderStatusNoApps(t *testing.T) {
	var buf bytes.Buffer
	RenderStatus(&buf, StatusReport{
		NodeState:  state.Uninitialized,
		Kubeconfig: "/etc/kubernetes/admin.conf",
	})

	out := buf.String()
	assert.Contains(t, out, "uninitialized")
	assert.Contains(t, out, "unreachable")
	assert.NotContains(t, out, "Application")
}

func TestWithSpinnerRunsFunction(t *testing.T) {
	ran := false
	err := WithSpinner("waiting", func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	wantErr := errors.New("boom")
	err = WithSpinner("waiting", func() error { return wantErr })
	assert.Equal(t, wantErr, err)
}
