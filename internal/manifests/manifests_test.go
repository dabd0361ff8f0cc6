package manifests

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"monitoring-app/internal/config"
)

func TestDeployment(t *testing.T) {
	cfg := config.Default()
	d := Deployment(cfg)

	assert.Equal(t, "metrics-app", d.Name)
	assert.Equal(t, "monitoring-app", d.Namespace)
	require.NotNil(t, d.Spec.Replicas)
	assert.EqualValues(t, 1, *d.Spec.Replicas)
	assert.Equal(t, map[string]string{"app": "metrics-app"}, d.Spec.Selector.MatchLabels)
	assert.Equal(t, "metrics-app", d.Spec.Template.Labels["app"])

	require.Len(t, d.Spec.Template.Spec.Containers, 1)
	c := d.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "metrics-app:latest", c.Image)
	assert.Equal(t, corev1.PullIfNotPresent, c.ImagePullPolicy)

	wantPorts := []corev1.ContainerPort{{Name: "http", ContainerPort: 5000, Protocol: corev1.ProtocolTCP}}
	if diff := cmp.Diff(wantPorts, c.Ports); diff != "" {
		t.Errorf("ports mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, c.LivenessProbe)
	assert.Equal(t, "/health", c.LivenessProbe.HTTPGet.Path)
	require.NotNil(t, c.ReadinessProbe)
	assert.Equal(t, "/ready", c.ReadinessProbe.HTTPGet.Path)
	assert.Equal(t, intstr.FromString("http"), c.ReadinessProbe.HTTPGet.Port)
}

func TestDeployment_FollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.App.Name = "demo"
	cfg.App.Port = 8080
	cfg.App.Replicas = 3
	cfg.Image.Tag = "v2"

	d := Deployment(cfg)
	assert.EqualValues(t, 3, *d.Spec.Replicas)
	c := d.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "metrics-app:v2", c.Image)
	assert.EqualValues(t, 8080, c.Ports[0].ContainerPort)
	assert.Contains(t, c.Env, corev1.EnvVar{Name: "APP_PORT", Value: "8080"})
}

func TestService(t *testing.T) {
	s := Service(config.Default())

	assert.Equal(t, corev1.ServiceTypeClusterIP, s.Spec.Type)
	assert.Equal(t, map[string]string{"app": "metrics-app"}, s.Spec.Selector)

	want := []corev1.ServicePort{{
		Name:       "http",
		Port:       5000,
		TargetPort: intstr.FromString("http"),
		Protocol:   corev1.ProtocolTCP,
	}}
	if diff := cmp.Diff(want, s.Spec.Ports); diff != "" {
		t.Errorf("ports mismatch (-want +got):\n%s", diff)
	}
}

func TestServiceMonitor(t *testing.T) {
	cfg := config.Default()
	cfg.Monitoring.Release = "stack"
	sm := ServiceMonitor(cfg)

	assert.Equal(t, "monitoring.coreos.com/v1", sm.GetAPIVersion())
	assert.Equal(t, "ServiceMonitor", sm.GetKind())
	assert.Equal(t, "stack", sm.GetLabels()["release"])

	match, found, err := unstructured.NestedStringMap(sm.Object, "spec", "selector", "matchLabels")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]string{"app": "metrics-app"}, match)

	endpoints, found, err := unstructured.NestedSlice(sm.Object, "spec", "endpoints")
	require.NoError(t, err)
	require.True(t, found)
	want := []any{map[string]any{"port": "http", "path": "/metrics", "interval": "15s"}}
	if diff := cmp.Diff(want, endpoints); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboard(t *testing.T) {
	var dash struct {
		Title  string `json:"title"`
		UID    string `json:"uid"`
		Panels []struct {
			Targets []struct {
				Expr string `json:"expr"`
			} `json:"targets"`
		} `json:"panels"`
	}
	require.NoError(t, json.Unmarshal(Dashboard(), &dash))
	assert.Equal(t, "Metrics App", dash.Title)
	require.NotEmpty(t, dash.Panels)

	var exprs bytes.Buffer
	for _, p := range dash.Panels {
		for _, tg := range p.Targets {
			exprs.WriteString(tg.Expr)
		}
	}
	assert.Contains(t, exprs.String(), "http_requests_total")
	assert.Contains(t, exprs.String(), "http_request_duration_seconds_bucket")

	cm := DashboardConfigMap(config.Default())
	assert.Equal(t, "1", cm.Labels[DashboardLabel])
	assert.JSONEq(t, string(Dashboard()), cm.Data[DashboardFile])
}

func TestDashboard_ReturnsCopy(t *testing.T) {
	b := Dashboard()
	b[0] = 'x'
	assert.Equal(t, byte('{'), Dashboard()[0])
}

func TestRender(t *testing.T) {
	out, err := Render(config.Default())
	require.NoError(t, err)

	docs := bytes.Split(out, []byte("---\n"))
	require.Len(t, docs, 5)

	var kinds []string
	for _, doc := range docs {
		var m struct {
			Kind     string `json:"kind"`
			Metadata struct {
				Name      string `json:"name"`
				Namespace string `json:"namespace"`
			} `json:"metadata"`
		}
		require.NoError(t, yaml.Unmarshal(doc, &m))
		kinds = append(kinds, m.Kind)
		if m.Kind != "Namespace" {
			assert.Equal(t, "monitoring-app", m.Metadata.Namespace, m.Kind)
		}
	}

	want := []string{"Namespace", "Deployment", "Service", "ServiceMonitor", "ConfigMap"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}
