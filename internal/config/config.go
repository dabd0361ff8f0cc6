// Package config holds the deploy CLI configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// STACK_* environment variables, then command-line flags applied by the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"
)

// Config describes one local monitoring environment.
type Config struct {
	Cluster    ClusterConfig    `yaml:"cluster" envPrefix:"CLUSTER_"`
	Namespace  string           `yaml:"namespace" env:"NAMESPACE"`
	App        AppConfig        `yaml:"app" envPrefix:"APP_"`
	Image      ImageConfig      `yaml:"image" envPrefix:"IMAGE_"`
	Monitoring MonitoringConfig `yaml:"monitoring" envPrefix:"MONITORING_"`

	// ManifestsDir, when set, is applied with kubectl instead of the
	// manifests rendered in-process.
	ManifestsDir string `yaml:"manifests_dir" env:"MANIFESTS_DIR"`

	// Kubeconfig overrides the kubeconfig used by kubectl, helm and cluster
	// lookups. deploy merges the cluster's context into it. Empty means the
	// default loading rules (KUBECONFIG, ~/.kube/config).
	Kubeconfig string `yaml:"kubeconfig" env:"KUBECONFIG_PATH"`

	// RolloutTimeout bounds the wait for the app Deployment to become ready.
	RolloutTimeout time.Duration `yaml:"rollout_timeout" env:"ROLLOUT_TIMEOUT"`
}

// ClusterConfig describes the k3d cluster.
type ClusterConfig struct {
	Name   string `yaml:"name" env:"NAME"`
	Agents int    `yaml:"agents" env:"AGENTS"`
}

// AppConfig describes the demo app workload.
type AppConfig struct {
	Name     string `yaml:"name" env:"NAME"`
	Port     int    `yaml:"port" env:"PORT"`
	Replicas int32  `yaml:"replicas" env:"REPLICAS"`
}

// ImageConfig describes the container image built and imported into the cluster.
type ImageConfig struct {
	Name       string `yaml:"name" env:"NAME"`
	Tag        string `yaml:"tag" env:"TAG"`
	Build      bool   `yaml:"build" env:"BUILD"`
	Context    string `yaml:"context" env:"CONTEXT"`
	Dockerfile string `yaml:"dockerfile" env:"DOCKERFILE"`
}

// MonitoringConfig describes the kube-prometheus-stack Helm release.
type MonitoringConfig struct {
	RepoName       string            `yaml:"repo_name" env:"REPO_NAME"`
	RepoURL        string            `yaml:"repo_url" env:"REPO_URL"`
	Chart          string            `yaml:"chart" env:"CHART"`
	ChartVersion   string            `yaml:"chart_version" env:"CHART_VERSION"`
	Release        string            `yaml:"release" env:"RELEASE"`
	GrafanaUser    string            `yaml:"grafana_user" env:"GRAFANA_USER"`
	GrafanaPass    string            `yaml:"grafana_password" env:"GRAFANA_PASSWORD"`
	PrometheusPort int               `yaml:"prometheus_port" env:"PROMETHEUS_PORT"`
	Wait           bool              `yaml:"wait" env:"WAIT"`
	Timeout        time.Duration     `yaml:"timeout" env:"TIMEOUT"`
	Values         map[string]string `yaml:"values" env:"VALUES"`
}

// Default returns the configuration of the stock demo environment.
func Default() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Name: "main-cluster",
		},
		Namespace: "monitoring-app",
		App: AppConfig{
			Name:     "metrics-app",
			Port:     5000,
			Replicas: 1,
		},
		Image: ImageConfig{
			Name:       "metrics-app",
			Tag:        "latest",
			Build:      true,
			Context:    ".",
			Dockerfile: "Dockerfile",
		},
		Monitoring: MonitoringConfig{
			RepoName:       "prometheus-community",
			RepoURL:        "https://prometheus-community.github.io/helm-charts",
			Chart:          "kube-prometheus-stack",
			Release:        "prometheus",
			GrafanaUser:    "admin",
			GrafanaPass:    "prom-operator",
			PrometheusPort: 9090,
			Timeout:        10 * time.Minute,
		},
		RolloutTimeout: 2 * time.Minute,
	}
}

// ImageRef returns the image reference, e.g. "metrics-app:latest".
func (c *Config) ImageRef() string {
	return c.Image.Name + ":" + c.Image.Tag
}

// KubeContext returns the kubeconfig context k3d creates for the cluster.
func (c *Config) KubeContext() string {
	return "k3d-" + c.Cluster.Name
}

// ChartRef returns the chart reference passed to helm, e.g. "prometheus-community/kube-prometheus-stack".
func (c *Config) ChartRef() string {
	return c.Monitoring.RepoName + "/" + c.Monitoring.Chart
}

// GrafanaService returns the name of the Grafana Service created by the chart.
func (c *Config) GrafanaService() string {
	return c.Monitoring.Release + "-grafana"
}

// PrometheusService returns the name of the Prometheus Service created by the chart.
// The chart shortens "kube-prometheus-stack" to "kube-prometheus" in resource names.
func (c *Config) PrometheusService() string {
	return c.Monitoring.Release + "-kube-prometheus-prometheus"
}

// Validate checks every field and returns all problems joined together.
func (c *Config) Validate() error {
	var errs []error

	if msgs := validation.IsDNS1123Label(c.Cluster.Name); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("cluster name %q: %s", c.Cluster.Name, strings.Join(msgs, "; ")))
	}
	if c.Cluster.Agents < 0 {
		errs = append(errs, fmt.Errorf("cluster agents must be non-negative, got %d", c.Cluster.Agents))
	}
	if msgs := validation.IsDNS1123Label(c.Namespace); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("namespace %q: %s", c.Namespace, strings.Join(msgs, "; ")))
	}
	if msgs := validation.IsDNS1123Label(c.App.Name); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("app name %q: %s", c.App.Name, strings.Join(msgs, "; ")))
	}
	if c.App.Port < 1 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app port must be between 1 and 65535, got %d", c.App.Port))
	}
	if c.App.Replicas < 1 {
		errs = append(errs, fmt.Errorf("app replicas must be at least 1, got %d", c.App.Replicas))
	}
	if c.Image.Name == "" || c.Image.Tag == "" {
		errs = append(errs, errors.New("image name and tag are required"))
	}
	if c.Image.Build && c.Image.Context == "" {
		errs = append(errs, errors.New("image context is required when image build is enabled"))
	}
	if c.Monitoring.RepoName == "" || c.Monitoring.Chart == "" || c.Monitoring.Release == "" {
		errs = append(errs, errors.New("monitoring repo name, chart and release are required"))
	}
	if u, err := url.Parse(c.Monitoring.RepoURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = append(errs, fmt.Errorf("monitoring repo url %q must be an http(s) URL", c.Monitoring.RepoURL))
	}
	if c.Monitoring.PrometheusPort < 1 || c.Monitoring.PrometheusPort > 65535 {
		errs = append(errs, fmt.Errorf("prometheus port must be between 1 and 65535, got %d", c.Monitoring.PrometheusPort))
	}
	if c.Monitoring.Wait && c.Monitoring.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("monitoring timeout must be positive when wait is enabled, got %v", c.Monitoring.Timeout))
	}
	if c.RolloutTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rollout timeout must be positive, got %v", c.RolloutTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
