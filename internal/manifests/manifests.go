// Package manifests builds the Kubernetes objects for the demo app and
// renders them as a YAML stream for kubectl.
package manifests

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"monitoring-app/internal/config"
)

// DashboardFile is the file name of the Grafana dashboard inside its ConfigMap.
const DashboardFile = "metrics-app.json"

// DashboardLabel is the label the Grafana sidecar of kube-prometheus-stack
// watches for dashboard ConfigMaps.
const DashboardLabel = "grafana_dashboard"

const (
	portName     = "http"
	metricsPath  = "/metrics"
	scrapeEvery  = "15s"
	livenessPath = "/health"
	readyPath    = "/ready"
)

//go:embed dashboards/metrics-app.json
var dashboardJSON []byte

// Dashboard returns the Grafana dashboard JSON for manual import.
func Dashboard() []byte {
	return bytes.Clone(dashboardJSON)
}

// Objects returns every object of the app, in apply order.
func Objects(cfg *config.Config) []runtime.Object {
	return []runtime.Object{
		Namespace(cfg),
		Deployment(cfg),
		Service(cfg),
		ServiceMonitor(cfg),
		DashboardConfigMap(cfg),
	}
}

// Render returns the objects as a multi-document YAML stream.
func Render(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	for i, obj := range Objects(cfg) {
		b, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("marshal %T: %w", obj, err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func appLabels(cfg *config.Config) map[string]string {
	return map[string]string{
		"app":                          cfg.App.Name,
		"app.kubernetes.io/name":       cfg.App.Name,
		"app.kubernetes.io/managed-by": "deploy",
	}
}

func selector(cfg *config.Config) map[string]string {
	return map[string]string{"app": cfg.App.Name}
}

// Namespace returns the namespace every app object lives in.
func Namespace(cfg *config.Config) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{Name: cfg.Namespace},
	}
}

// Deployment runs the app from the image imported into the cluster, so the
// pull policy never reaches out to a registry for it.
func Deployment(cfg *config.Config) *appsv1.Deployment {
	replicas := cfg.App.Replicas
	port := int32(cfg.App.Port)

	probe := func(path string, initialDelay int32) *corev1.Probe {
		return &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{Path: path, Port: intstr.FromString(portName)},
			},
			InitialDelaySeconds: initialDelay,
			PeriodSeconds:       10,
			TimeoutSeconds:      2,
		}
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.App.Name,
			Namespace: cfg.Namespace,
			Labels:    appLabels(cfg),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector(cfg)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: appLabels(cfg)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:            cfg.App.Name,
						Image:           cfg.ImageRef(),
						ImagePullPolicy: corev1.PullIfNotPresent,
						Ports: []corev1.ContainerPort{{
							Name:          portName,
							ContainerPort: port,
							Protocol:      corev1.ProtocolTCP,
						}},
						Env: []corev1.EnvVar{
							{Name: "APP_PORT", Value: strconv.Itoa(cfg.App.Port)},
							{Name: "VERSION", Value: cfg.Image.Tag},
						},
						LivenessProbe:  probe(livenessPath, 5),
						ReadinessProbe: probe(readyPath, 2),
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse("50m"),
								corev1.ResourceMemory: resource.MustParse("32Mi"),
							},
							Limits: corev1.ResourceList{
								corev1.ResourceMemory: resource.MustParse("128Mi"),
							},
						},
					}},
				},
			},
		},
	}
}

// Service exposes the app inside the cluster under the port name the
// ServiceMonitor scrapes.
func Service(cfg *config.Config) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.App.Name,
			Namespace: cfg.Namespace,
			Labels:    appLabels(cfg),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selector(cfg),
			Ports: []corev1.ServicePort{{
				Name:       portName,
				Port:       int32(cfg.App.Port),
				TargetPort: intstr.FromString(portName),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

// ServiceMonitor tells the Prometheus operator to scrape the app Service.
// The release label must match the serviceMonitorSelector set on the Helm release.
// It is unstructured because the operator's Go types are not a dependency.
func ServiceMonitor(cfg *config.Config) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "monitoring.coreos.com/v1",
		"kind":       "ServiceMonitor",
		"metadata": map[string]any{
			"name":      cfg.App.Name,
			"namespace": cfg.Namespace,
			"labels": map[string]any{
				"app":     cfg.App.Name,
				"release": cfg.Monitoring.Release,
			},
		},
		"spec": map[string]any{
			"selector": map[string]any{
				"matchLabels": map[string]any{"app": cfg.App.Name},
			},
			"namespaceSelector": map[string]any{
				"matchNames": []any{cfg.Namespace},
			},
			"endpoints": []any{
				map[string]any{
					"port":     portName,
					"path":     metricsPath,
					"interval": scrapeEvery,
				},
			},
		},
	}}
}

// DashboardConfigMap carries the dashboard JSON for the Grafana sidecar.
func DashboardConfigMap(cfg *config.Config) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.App.Name + "-dashboard",
			Namespace: cfg.Namespace,
			Labels: map[string]string{
				"app":          cfg.App.Name,
				DashboardLabel: "1",
			},
		},
		Data: map[string]string{DashboardFile: string(dashboardJSON)},
	}
}
