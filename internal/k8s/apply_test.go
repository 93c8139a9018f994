package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

type recordedPatch struct {
	resource  schema.GroupVersionResource
	namespace string
	name      string
	patchType types.PatchType
}

// newApplyClient wires a Client whose dynamic patches are intercepted
// and recorded instead of hitting a tracker.
func newApplyClient(t *testing.T) (*Client, *[]recordedPatch) {
	t.Helper()

	mapper := meta.NewDefaultRESTMapper(nil)
	mapper.Add(schema.GroupVersionKind{Group: "networking.k8s.io", Version: "v1", Kind: "Ingress"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Group: "", Version: "v1", Kind: "ConfigMap"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "ClusterRole"}, meta.RESTScopeRoot)

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())
	var patches []recordedPatch
	dyn.PrependReactor("patch", "*", func(action k8stesting.Action) (bool, runtime.Object, error) {
		patch := action.(k8stesting.PatchAction)
		patches = append(patches, recordedPatch{
			resource:  patch.GetResource(),
			namespace: patch.GetNamespace(),
			name:      patch.GetName(),
			patchType: patch.GetPatchType(),
		})
		return true, &unstructured.Unstructured{}, nil
	})

	return NewFromClients(fake.NewSimpleClientset(), dyn, mapper), &patches
}

func TestApplyResolvesResourceThroughMapper(t *testing.T) {
	client, patches := newApplyClient(t)

	manifest := `
apiVersion: networking.k8s.io/v1
kind: Ingress
metadata:
  name: web
  namespace: portainer
`
	require.NoError(t, client.Apply(context.Background(), manifest))

	require.Len(t, *patches, 1)
	got := (*patches)[0]
	assert.Equal(t, "ingresses", got.resource.Resource)
	assert.Equal(t, "networking.k8s.io", got.resource.Group)
	assert.Equal(t, "portainer", got.namespace)
	assert.Equal(t, "web", got.name)
	assert.Equal(t, types.ApplyPatchType, got.patchType)
}

func TestApplyClusterScopedObject(t *testing.T) {
	client, patches := newApplyClient(t)

	manifest := `
apiVersion: rbac.authorization.k8s.io/v1
kind: ClusterRole
metadata:
  name: viewer
`
	require.NoError(t, client.Apply(context.Background(), manifest))

	require.Len(t, *patches, 1)
	got := (*patches)[0]
	assert.Equal(t, "clusterroles", got.resource.Resource)
	assert.Empty(t, got.namespace)
}

func TestApplyDefaultsNamespace(t *testing.T) {
	client, patches := newApplyClient(t)

	manifest := `
apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
`
	require.NoError(t, client.Apply(context.Background(), manifest))

	require.Len(t, *patches, 1)
	assert.Equal(t, "default", (*patches)[0].namespace)
}

func TestApplyMultiDocumentSkipsEmpty(t *testing.T) {
	client, patches := newApplyClient(t)

	manifest := `
apiVersion: v1
kind: ConfigMap
metadata:
  name: first
---
---
apiVersion: networking.k8s.io/v1
kind: Ingress
metadata:
  name: second
  namespace: web
`
	require.NoError(t, client.Apply(context.Background(), manifest))
	require.Len(t, *patches, 2)
	assert.Equal(t, "configmaps", (*patches)[0].resource.Resource)
	assert.Equal(t, "ingresses", (*patches)[1].resource.Resource)
}

func TestApplyUnknownKind(t *testing.T) {
	client, patches := newApplyClient(t)

	manifest := `
apiVersion: gateway.networking.k8s.io/v1
kind: GatewayClass
metadata:
  name: default
`
	err := client.Apply(context.Background(), manifest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REST mapping")
	assert.Empty(t, *patches)
}

func TestApplyMissingKind(t *testing.T) {
	client, _ := newApplyClient(t)

	err := client.Apply(context.Background(), "metadata:\n  name: stray\n")
	assert.Error(t, err)
}

func TestApplyWithoutDynamicClient(t *testing.T) {
	client := NewFromClientset(fake.NewSimpleClientset())
	err := client.Apply(context.Background(), "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: x\n")
	assert.Error(t, err)
}
