// Package kube reads cluster state through client-go: where Grafana is
// reachable and whether the app has rolled out.
package kube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"monitoring-app/internal/resilience/retry"
)

// ErrNoNodePort is returned when a Service exposes no NodePort.
var ErrNoNodePort = errors.New("service has no node port")

// ErrNoNodeAddress is returned when no node reports a usable address.
var ErrNoNodeAddress = errors.New("no node address found")

// NewClientset builds a clientset from kubeconfig, selecting kubeContext.
// An empty kubeconfig uses the default loading rules (KUBECONFIG, ~/.kube/config).
func NewClientset(kubeconfig, kubeContext string) (kubernetes.Interface, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		rules,
		&clientcmd.ConfigOverrides{CurrentContext: kubeContext},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig context %q: %w", kubeContext, err)
	}
	restConfig.Timeout = 15 * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return clientset, nil
}

// Endpoint is a host:port pair reachable from the machine running the CLI.
type Endpoint struct {
	Host string
	Port int32
}

// URL returns the endpoint as an http URL.
func (e Endpoint) URL() string {
	return "http://" + net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Inspector answers questions about the cluster.
type Inspector struct {
	client   kubernetes.Interface
	apiRetry retry.Config
	rollout  retry.Config
}

// NewInspector returns an Inspector over client.
func NewInspector(client kubernetes.Interface) *Inspector {
	return &Inspector{
		client:   client,
		apiRetry: retry.KubeAPIConfig(),
		rollout:  retry.RolloutConfig(),
	}
}

// ServerVersion reports the Kubernetes version of the API server.
func (i *Inspector) ServerVersion() (string, error) {
	v, err := i.client.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("get server version: %w", err)
	}
	return v.GitVersion, nil
}

// NodePortEndpoint resolves a NodePort Service to a node address and its node port.
func (i *Inspector) NodePortEndpoint(ctx context.Context, namespace, service string) (Endpoint, error) {
	var svc *corev1.Service
	err := retry.WithBackoff(ctx, i.apiRetry, func() error {
		var err error
		svc, err = i.client.CoreV1().Services(namespace).Get(ctx, service, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			// helm creates the Service before it returns; NotFound means no release.
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return Endpoint{}, fmt.Errorf("get service %s/%s: %w", namespace, service, err)
	}

	port := nodePort(svc)
	if port == 0 {
		return Endpoint{}, fmt.Errorf("%s/%s (type %s): %w", namespace, service, svc.Spec.Type, ErrNoNodePort)
	}

	nodes, err := i.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return Endpoint{}, fmt.Errorf("list nodes: %w", err)
	}
	host := nodeAddress(nodes.Items)
	if host == "" {
		return Endpoint{}, ErrNoNodeAddress
	}
	return Endpoint{Host: host, Port: port}, nil
}

// nodePort picks the node port of the service's first port that has one.
func nodePort(svc *corev1.Service) int32 {
	if svc.Spec.Type != corev1.ServiceTypeNodePort && svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
		return 0
	}
	for _, p := range svc.Spec.Ports {
		if p.NodePort != 0 {
			return p.NodePort
		}
	}
	return 0
}

// nodeAddress prefers an InternalIP, then an ExternalIP, of the first node
// that has one. Nodes are scanned in name order for a stable answer.
func nodeAddress(nodes []corev1.Node) string {
	for _, want := range []corev1.NodeAddressType{corev1.NodeInternalIP, corev1.NodeExternalIP} {
		for _, n := range sortedNodes(nodes) {
			for _, a := range n.Status.Addresses {
				if a.Type == want && a.Address != "" {
					return a.Address
				}
			}
		}
	}
	return ""
}

func sortedNodes(nodes []corev1.Node) []corev1.Node {
	out := slices.Clone(nodes)
	slices.SortFunc(out, func(a, b corev1.Node) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// RolloutStatus is the replica state of a Deployment.
type RolloutStatus struct {
	Desired int32
	Ready   int32
	Updated int32
}

// Complete reports whether every desired replica is updated and ready.
func (s RolloutStatus) Complete() bool {
	desired := s.Desired
	if desired < 1 {
		desired = 1
	}
	return s.Ready >= desired && s.Updated >= desired
}

func (s RolloutStatus) String() string {
	return fmt.Sprintf("%d/%d ready", s.Ready, s.Desired)
}

// DeploymentStatus returns the current replica state of a Deployment.
func (i *Inspector) DeploymentStatus(ctx context.Context, namespace, name string) (RolloutStatus, error) {
	d, err := i.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return RolloutStatus{}, err
	}
	return rolloutStatus(d), nil
}

func rolloutStatus(d *appsv1.Deployment) RolloutStatus {
	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	return RolloutStatus{
		Desired: desired,
		Ready:   d.Status.ReadyReplicas,
		Updated: d.Status.UpdatedReplicas,
	}
}

// WaitForDeployment polls until the Deployment has all replicas ready or
// timeout elapses. A Deployment that does not exist yet is waited for too.
func (i *Inspector) WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) (RolloutStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var status RolloutStatus
	err := retry.WithBackoff(ctx, i.rollout, func() error {
		var err error
		status, err = i.DeploymentStatus(ctx, namespace, name)
		if err != nil {
			return err
		}
		if !status.Complete() {
			return fmt.Errorf("deployment %s/%s %s: %w", namespace, name, status, retry.ErrNotReady)
		}
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("wait for deployment %s/%s: %w", namespace, name, err)
	}
	return status, nil
}
