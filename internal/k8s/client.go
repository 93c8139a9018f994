// Package k8s wraps the typed Kubernetes API operations the orchestrator
// needs: readiness queries, namespace inspection, manifest application,
// and the small set of mutations used by app management. Status is always
// read from the cluster through typed calls; no command output is parsed.
package k8s

import (
	"context"
	"fmt"
	"strings"

	authenticationv1 "k8s.io/api/authentication/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

const controlPlaneTaint = "node-role.kubernetes.io/control-plane"

// Client wraps Kubernetes API operations.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	mapper    meta.RESTMapper
}

// NewClient creates a new Kubernetes client from a kubeconfig file.
func NewClient(kubeconfigPath string) (*Client, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, fmt.Errorf("failed to get API group resources: %w", err)
	}

	return &Client{
		clientset: clientset,
		dynamic:   dynamicClient,
		mapper:    restmapper.NewDiscoveryRESTMapper(groupResources),
	}, nil
}

// NewFromClientset wraps an existing clientset. Used by tests with the
// client-go fake.
func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// NewFromClients wraps pre-configured clients and a REST mapper. Used by
// tests exercising the manifest-apply path.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) *Client {
	return &Client{
		clientset: clientset,
		dynamic:   dynamicClient,
		mapper:    mapper,
	}
}

// Ping probes API server reachability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("api server unreachable: %w", err)
	}
	return nil
}

// NodeReady reports whether the named node (or, with an empty name, all
// nodes) has the Ready condition true.
func (c *Client) NodeReady(ctx context.Context, name string) (bool, error) {
	if name != "" {
		node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		return isNodeReady(node), nil
	}

	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return false, err
	}
	if len(nodes.Items) == 0 {
		return false, nil
	}
	for _, node := range nodes.Items {
		if !isNodeReady(&node) {
			return false, nil
		}
	}
	return true, nil
}

// NamespaceLabels returns the labels of a namespace and whether it
// exists.
func (c *Client) NamespaceLabels(ctx context.Context, name string) (map[string]string, bool, error) {
	ns, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return ns.Labels, true, nil
}

// EnsureNamespace creates the namespace with the given labels, or
// patches the labels onto an existing one. Idempotent.
func (c *Client) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
	}

	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}

	existing, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return err
	}
	if existing.Labels == nil {
		existing.Labels = map[string]string{}
	}
	for k, v := range labels {
		existing.Labels[k] = v
	}
	_, err = c.clientset.CoreV1().Namespaces().Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("failed to update namespace %s: %w", name, err)
	}
	return nil
}

// DeleteNamespace removes a namespace and everything in it.
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	return nil
}

// DeletePVCs removes the named claims from a namespace. Missing claims
// are ignored.
func (c *Client) DeletePVCs(ctx context.Context, namespace string, names []string) error {
	for _, name := range names {
		err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Delete(ctx, name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete pvc %s/%s: %w", namespace, name, err)
		}
	}
	return nil
}

// DeletePVsBySuffix removes persistent volumes whose names end in one of
// the given suffixes. Used for the statically provisioned volumes the
// app catalogue creates.
func (c *Client) DeletePVsBySuffix(ctx context.Context, suffixes []string) error {
	if len(suffixes) == 0 {
		return nil
	}
	pvs, err := c.clientset.CoreV1().PersistentVolumes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list persistent volumes: %w", err)
	}
	for _, pv := range pvs.Items {
		for _, suffix := range suffixes {
			if !strings.HasSuffix(pv.Name, suffix) {
				continue
			}
			err := c.clientset.CoreV1().PersistentVolumes().Delete(ctx, pv.Name, metav1.DeleteOptions{})
			if err != nil && !apierrors.IsNotFound(err) {
				return fmt.Errorf("failed to delete pv %s: %w", pv.Name, err)
			}
			break
		}
	}
	return nil
}

// UntaintControlPlane removes the control-plane NoSchedule taint from
// every node so a single-node cluster can schedule workloads. Nodes
// without the taint are left untouched.
func (c *Client) UntaintControlPlane(ctx context.Context) error {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	for _, node := range nodes.Items {
		kept := node.Spec.Taints[:0]
		removed := false
		for _, taint := range node.Spec.Taints {
			if taint.Key == controlPlaneTaint {
				removed = true
				continue
			}
			kept = append(kept, taint)
		}
		if !removed {
			continue
		}
		node.Spec.Taints = kept
		if _, err := c.clientset.CoreV1().Nodes().Update(ctx, &node, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to untaint node %s: %w", node.Name, err)
		}
	}
	return nil
}

// ServiceAccountToken requests a bound token for a service account.
func (c *Client) ServiceAccountToken(ctx context.Context, namespace, name string) (string, error) {
	req := &authenticationv1.TokenRequest{}
	resp, err := c.clientset.CoreV1().ServiceAccounts(namespace).CreateToken(ctx, name, req, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create token for %s/%s: %w", namespace, name, err)
	}
	return resp.Status.Token, nil
}

// isNodeReady checks the node's Ready condition.
func isNodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
