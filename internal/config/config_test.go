package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "main-cluster", cfg.Cluster.Name)
	assert.Equal(t, "monitoring-app", cfg.Namespace)
	assert.Equal(t, "metrics-app:latest", cfg.ImageRef())
	assert.Equal(t, "k3d-main-cluster", cfg.KubeContext())
	assert.Equal(t, "prometheus-community/kube-prometheus-stack", cfg.ChartRef())
	assert.Equal(t, "prometheus-grafana", cfg.GrafanaService())
	assert.Equal(t, "prometheus-kube-prometheus-prometheus", cfg.PrometheusService())
	assert.Equal(t, "admin", cfg.Monitoring.GrafanaUser)
	assert.Equal(t, "prom-operator", cfg.Monitoring.GrafanaPass)
	assert.Equal(t, 5000, cfg.App.Port)
	assert.Equal(t, 9090, cfg.Monitoring.PrometheusPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := writeConfig(t, `
cluster:
  name: demo
  agents: 2
namespace: observability
image:
  tag: v2
  build: false
monitoring:
  chart_version: "65.1.0"
  wait: true
  timeout: 3m
  values:
    grafana.persistence.enabled: "false"
rollout_timeout: 45s
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Cluster.Name)
	assert.Equal(t, 2, cfg.Cluster.Agents)
	assert.Equal(t, "observability", cfg.Namespace)
	assert.Equal(t, "metrics-app:v2", cfg.ImageRef())
	assert.False(t, cfg.Image.Build)
	assert.Equal(t, "65.1.0", cfg.Monitoring.ChartVersion)
	assert.True(t, cfg.Monitoring.Wait)
	assert.Equal(t, 3*time.Minute, cfg.Monitoring.Timeout)
	assert.Equal(t, map[string]string{"grafana.persistence.enabled": "false"}, cfg.Monitoring.Values)
	assert.Equal(t, 45*time.Second, cfg.RolloutTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, "prometheus", cfg.Monitoring.Release)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "clustr:\n  name: typo\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "clustr")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "namespace: from-file\n")
	t.Setenv("STACK_NAMESPACE", "from-env")
	t.Setenv("STACK_CLUSTER_NAME", "env-cluster")
	t.Setenv("STACK_IMAGE_BUILD", "false")
	t.Setenv("STACK_MONITORING_RELEASE", "kps")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Namespace)
	assert.Equal(t, "env-cluster", cfg.Cluster.Name)
	assert.False(t, cfg.Image.Build)
	assert.Equal(t, "kps-grafana", cfg.GrafanaService())
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("STACK_APP_PORT", "not-a-port")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "uppercase cluster name", mutate: func(c *Config) { c.Cluster.Name = "Main" }, wantErr: "cluster name"},
		{name: "empty namespace", mutate: func(c *Config) { c.Namespace = "" }, wantErr: "namespace"},
		{name: "port out of range", mutate: func(c *Config) { c.App.Port = 0 }, wantErr: "app port"},
		{name: "zero replicas", mutate: func(c *Config) { c.App.Replicas = 0 }, wantErr: "replicas"},
		{name: "missing tag", mutate: func(c *Config) { c.Image.Tag = "" }, wantErr: "image name and tag"},
		{name: "build without context", mutate: func(c *Config) { c.Image.Context = "" }, wantErr: "image context"},
		{name: "bad repo url", mutate: func(c *Config) { c.Monitoring.RepoURL = "ftp://charts" }, wantErr: "repo url"},
		{name: "wait without timeout", mutate: func(c *Config) {
			c.Monitoring.Wait = true
			c.Monitoring.Timeout = 0
		}, wantErr: "monitoring timeout"},
		{name: "zero rollout timeout", mutate: func(c *Config) { c.RolloutTimeout = 0 }, wantErr: "rollout timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Namespace = "Bad_NS"
	cfg.App.Port = 70000

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace")
	assert.Contains(t, err.Error(), "app port")
}
