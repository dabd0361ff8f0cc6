package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"monitoring-app/internal/config"
	"monitoring-app/internal/infra/kube"
)

// Service ports of the chart's Grafana and Prometheus.
const (
	grafanaServicePort    = 80
	prometheusServicePort = 9090
)

// Access lists how to reach each component from the host.
type Access struct {
	AppURL                string
	AppPortForward        string
	PrometheusURL         string
	PrometheusPortForward string
	GrafanaURL            string
	// GrafanaPortForward is set only when the NodePort lookup failed.
	GrafanaPortForward string
	GrafanaUser        string
	GrafanaPassword    string
}

func portForward(cfg *config.Config, service string, local, remote int) string {
	kubectl := "kubectl"
	if cfg.Kubeconfig != "" {
		kubectl += " --kubeconfig " + cfg.Kubeconfig
	}
	return fmt.Sprintf("%s --context %s port-forward svc/%s %d:%d -n %s",
		kubectl, cfg.KubeContext(), service, local, remote, cfg.Namespace)
}

func localURL(port int) string {
	return "http://localhost:" + strconv.Itoa(port)
}

// access builds the access URLs. The Grafana NodePort is looked up in the
// cluster; when that fails a port-forward is suggested instead.
func (s *Service) access(ctx context.Context) Access {
	cfg := s.cfg
	a := Access{
		AppURL:                localURL(cfg.App.Port),
		AppPortForward:        portForward(cfg, cfg.App.Name, cfg.App.Port, cfg.App.Port),
		PrometheusURL:         localURL(cfg.Monitoring.PrometheusPort),
		PrometheusPortForward: portForward(cfg, cfg.PrometheusService(), cfg.Monitoring.PrometheusPort, prometheusServicePort),
		GrafanaUser:           cfg.Monitoring.GrafanaUser,
		GrafanaPassword:       cfg.Monitoring.GrafanaPass,
	}

	if s.newInspector != nil {
		inspector, err := s.newInspector(cfg)
		if err == nil {
			var ep kube.Endpoint
			ep, err = inspector.NodePortEndpoint(ctx, cfg.Namespace, cfg.GrafanaService())
			if err == nil {
				a.GrafanaURL = ep.URL()
				return a
			}
		}
		s.logger.Debug("grafana node port lookup failed", slog.Any("error", err))
	}

	a.GrafanaURL = localURL(3000)
	a.GrafanaPortForward = portForward(cfg, cfg.GrafanaService(), 3000, grafanaServicePort)
	return a
}

// Write prints the access information.
func (a Access) Write(w io.Writer) {
	fmt.Fprintf(w, "App:        %s\n", a.AppURL)
	fmt.Fprintf(w, "            (run: %s)\n", a.AppPortForward)
	fmt.Fprintf(w, "Prometheus: %s\n", a.PrometheusURL)
	fmt.Fprintf(w, "            (run: %s)\n", a.PrometheusPortForward)
	fmt.Fprintf(w, "Grafana:    %s\n", a.GrafanaURL)
	if a.GrafanaPortForward != "" {
		fmt.Fprintf(w, "            (run: %s)\n", a.GrafanaPortForward)
	}
	fmt.Fprintf(w, "            login: %s / %s\n", a.GrafanaUser, a.GrafanaPassword)
	fmt.Fprintln(w, `            dashboard: "Metrics App" (or import the JSON from: deploy dashboard)`)
}
