// Package deploy sequences the external tools that stand up the local
// monitoring environment: a k3d cluster, the app image, the
// kube-prometheus-stack release and the app manifests.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"monitoring-app/internal/config"
	"monitoring-app/internal/infra/kube"
	"monitoring-app/internal/infra/toolexec"
	"monitoring-app/internal/manifests"
)

// RequiredTools are checked on PATH before anything runs.
var RequiredTools = []string{"docker", "k3d", "kubectl", "helm"}

// Inspector reads cluster state. *kube.Inspector implements it.
type Inspector interface {
	ServerVersion() (string, error)
	NodePortEndpoint(ctx context.Context, namespace, service string) (kube.Endpoint, error)
	DeploymentStatus(ctx context.Context, namespace, name string) (kube.RolloutStatus, error)
	WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) (kube.RolloutStatus, error)
}

// InspectorFactory connects to the cluster described by cfg. It is called
// only after the cluster exists, since k3d writes the kubeconfig context on create.
type InspectorFactory func(cfg *config.Config) (Inspector, error)

// KubeInspector is the InspectorFactory backed by client-go.
func KubeInspector(cfg *config.Config) (Inspector, error) {
	client, err := kube.NewClientset(cfg.Kubeconfig, cfg.KubeContext())
	if err != nil {
		return nil, err
	}
	return kube.NewInspector(client), nil
}

// Result summarizes a successful deploy.
type Result struct {
	ClusterCreated   bool
	NamespaceCreated bool
	Rollout          kube.RolloutStatus
	Access           Access
}

// Service runs the deploy, cleanup and status operations.
type Service struct {
	cfg          *config.Config
	runner       toolexec.Runner
	k3d          toolexec.K3d
	docker       toolexec.Docker
	kubectl      toolexec.Kubectl
	helm         toolexec.Helm
	newInspector InspectorFactory
	out          reporter
	logger       *slog.Logger
}

// NewService wires the tool wrappers for cfg around runner. Progress is
// written to out. newInspector may be nil, which skips the rollout wait and
// the Grafana address lookup.
func NewService(cfg *config.Config, runner toolexec.Runner, newInspector InspectorFactory, out io.Writer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:          cfg,
		runner:       runner,
		k3d:          toolexec.K3d{Runner: runner},
		docker:       toolexec.Docker{Runner: runner},
		kubectl:      toolexec.Kubectl{Runner: runner, Context: cfg.KubeContext(), Kubeconfig: cfg.Kubeconfig},
		helm:         toolexec.Helm{Runner: runner, KubeContext: cfg.KubeContext(), Kubeconfig: cfg.Kubeconfig},
		newInspector: newInspector,
		out:          reporter{w: out},
		logger:       logger,
	}
}

type step struct {
	title string
	run   func(ctx context.Context, res *Result) error
}

func (s *Service) steps() []step {
	return []step{
		{"Checking Prerequisites", s.checkPrerequisites},
		{"Creating k3d Cluster", s.ensureCluster},
		{"Building Docker Image", s.buildImage},
		{"Importing Docker Image into k3d Cluster", s.importImage},
		{"Ensuring Namespace", s.ensureNamespace},
		{"Deploying Monitoring Stack (Prometheus & Grafana)", s.installMonitoring},
		{"Deploying Application to Kubernetes", s.deployApp},
		{"Access Information", s.printAccess},
	}
}

// Deploy runs every step in order and stops at the first failure, which is
// returned as a *StepError. Re-running against an existing environment only
// upgrades it in place.
func (s *Service) Deploy(ctx context.Context) (*Result, error) {
	res := &Result{}
	for i, st := range s.steps() {
		s.out.step(i, st.title)
		start := time.Now()
		err := st.run(ctx, res)
		s.logger.Debug("step finished",
			slog.Int("step", i),
			slog.String("title", st.title),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		if err != nil {
			return res, &StepError{Step: i, Title: st.title, Err: err}
		}
	}
	s.out.info("\n🎉 Deployment finished successfully! 🎉")
	s.out.info("To clean up the environment, run: deploy cleanup")
	return res, nil
}

func (s *Service) checkPrerequisites(_ context.Context, _ *Result) error {
	var errs []error
	for _, tool := range RequiredTools {
		path, err := s.runner.LookPath(tool)
		if err != nil {
			errs = append(errs, fmt.Errorf("required tool %q is not installed or not in your PATH: %w", tool, err))
			continue
		}
		s.logger.Debug("found tool", slog.String("tool", tool), slog.String("path", path))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.out.success("All prerequisites are satisfied.")
	return nil
}

func (s *Service) ensureCluster(ctx context.Context, res *Result) error {
	name := s.cfg.Cluster.Name
	exists, err := s.k3d.ClusterExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		s.out.success("Cluster '%s' already exists. Skipping creation.", name)
	} else {
		s.out.info("Cluster '%s' not found. Creating it now...", name)
		if err := s.k3d.CreateCluster(ctx, name, s.cfg.Cluster.Agents); err != nil {
			return err
		}
		res.ClusterCreated = true
		s.out.success("Cluster '%s' created.", name)
	}

	// k3d only updates the default kubeconfig on create.
	if s.cfg.Kubeconfig != "" {
		if err := s.k3d.MergeKubeconfig(ctx, name, s.cfg.Kubeconfig); err != nil {
			return fmt.Errorf("write kubeconfig %s: %w", s.cfg.Kubeconfig, err)
		}
		s.out.success("Context '%s' written to %s.", s.cfg.KubeContext(), s.cfg.Kubeconfig)
	}
	return nil
}

func (s *Service) buildImage(ctx context.Context, _ *Result) error {
	if !s.cfg.Image.Build {
		s.out.info("Image build disabled; using local image '%s'.", s.cfg.ImageRef())
		return nil
	}
	if err := s.docker.Build(ctx, s.cfg.ImageRef(), s.cfg.Image.Context, s.cfg.Image.Dockerfile); err != nil {
		return err
	}
	s.out.success("Image '%s' built.", s.cfg.ImageRef())
	return nil
}

func (s *Service) importImage(ctx context.Context, _ *Result) error {
	if err := s.k3d.ImportImage(ctx, s.cfg.ImageRef(), s.cfg.Cluster.Name); err != nil {
		return err
	}
	s.out.success("Image '%s' imported into cluster '%s'.", s.cfg.ImageRef(), s.cfg.Cluster.Name)
	return nil
}

func (s *Service) ensureNamespace(ctx context.Context, res *Result) error {
	ns := s.cfg.Namespace
	s.out.info("Creating namespace '%s' if it doesn't exist...", ns)
	exists, err := s.kubectl.NamespaceExists(ctx, ns)
	if err != nil {
		return err
	}
	if exists {
		s.out.success("Namespace '%s' already exists.", ns)
		return nil
	}
	if err := s.kubectl.CreateNamespace(ctx, ns); err != nil {
		return err
	}
	res.NamespaceCreated = true
	s.out.success("Namespace '%s' created.", ns)
	return nil
}

// HelmValues returns the --set values of the monitoring release. Values from
// the configuration file override the built-in ones.
func HelmValues(cfg *config.Config) map[string]string {
	values := map[string]string{
		"prometheus.prometheusSpec.serviceMonitorSelector.matchLabels.release": cfg.Monitoring.Release,
		"grafana.service.type":  "NodePort",
		"grafana.adminUser":     cfg.Monitoring.GrafanaUser,
		"grafana.adminPassword": cfg.Monitoring.GrafanaPass,
	}
	for k, v := range cfg.Monitoring.Values {
		values[k] = v
	}
	return values
}

func (s *Service) installMonitoring(ctx context.Context, _ *Result) error {
	m := s.cfg.Monitoring

	s.out.info("Adding Prometheus Helm repository...")
	if err := s.helm.RepoAdd(ctx, m.RepoName, m.RepoURL); err != nil {
		// An existing repository makes helm exit non-zero; only a tool that
		// cannot run at all stops the step.
		if _, ok := toolexec.ExitCode(err); !ok {
			return err
		}
		s.logger.Debug("helm repo add failed, continuing", slog.Any("error", err))
	}

	s.out.info("Updating Helm repositories...")
	if err := s.helm.RepoUpdate(ctx); err != nil {
		return err
	}

	s.out.info("Installing or upgrading %s...", m.Chart)
	err := s.helm.UpgradeInstall(ctx, toolexec.Release{
		Name:      m.Release,
		Chart:     s.cfg.ChartRef(),
		Version:   m.ChartVersion,
		Namespace: s.cfg.Namespace,
		Values:    HelmValues(s.cfg),
		Wait:      m.Wait,
		Timeout:   m.Timeout,
	})
	if err != nil {
		return err
	}
	s.out.success("Monitoring stack deployed successfully.")
	return nil
}

func (s *Service) deployApp(ctx context.Context, res *Result) error {
	ns := s.cfg.Namespace
	if dir := s.cfg.ManifestsDir; dir != "" {
		s.out.info("Applying Kubernetes manifests from '%s'...", dir)
		if err := s.kubectl.ApplyDir(ctx, ns, dir); err != nil {
			return err
		}
	} else {
		s.out.info("Applying rendered Kubernetes manifests...")
		rendered, err := manifests.Render(s.cfg)
		if err != nil {
			return err
		}
		if err := s.kubectl.Apply(ctx, ns, bytes.NewReader(rendered)); err != nil {
			return err
		}
	}

	if s.newInspector == nil {
		s.out.success("Application deployed successfully.")
		return nil
	}

	inspector, err := s.newInspector(s.cfg)
	if err != nil {
		return err
	}
	s.out.info("Waiting up to %s for deployment '%s' to become ready...", s.cfg.RolloutTimeout, s.cfg.App.Name)
	status, err := inspector.WaitForDeployment(ctx, ns, s.cfg.App.Name, s.cfg.RolloutTimeout)
	res.Rollout = status
	if err != nil {
		return err
	}
	s.out.success("Application deployed successfully (%s).", status)
	return nil
}

func (s *Service) printAccess(ctx context.Context, res *Result) error {
	res.Access = s.access(ctx)
	res.Access.Write(s.out.w)
	return nil
}

// Cleanup deletes the cluster. A failed deletion is reported but not
// returned; only a missing k3d binary or a canceled context is an error.
func (s *Service) Cleanup(ctx context.Context) error {
	s.out.banner("Cleaning up environment")
	s.out.info("Deleting k3d cluster '%s'...", s.cfg.Cluster.Name)
	if err := s.k3d.DeleteCluster(ctx, s.cfg.Cluster.Name); err != nil {
		if _, ok := toolexec.ExitCode(err); !ok {
			return err
		}
		s.out.warn("Cluster deletion reported an error: %v", err)
		return nil
	}
	s.out.success("Cleanup complete.")
	return nil
}

// StatusReport describes the current environment.
type StatusReport struct {
	ClusterExists bool
	// ServerVersion is the API server's git version, empty when unreachable.
	ServerVersion string
	Rollout       kube.RolloutStatus
	RolloutErr    error
	Access        Access
}

// Status reports whether the cluster exists and, if so, the app rollout
// state and the access URLs. It never changes the environment.
func (s *Service) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{}
	s.out.banner("Environment status")

	exists, err := s.k3d.ClusterExists(ctx, s.cfg.Cluster.Name)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.out.info("Cluster '%s' does not exist. Run: deploy deploy", s.cfg.Cluster.Name)
		return report, fmt.Errorf("%s: %w", s.cfg.Cluster.Name, ErrClusterNotFound)
	}
	report.ClusterExists = true
	s.out.success("Cluster '%s' exists (context %s).", s.cfg.Cluster.Name, s.cfg.KubeContext())

	if s.newInspector != nil {
		inspector, err := s.newInspector(s.cfg)
		if err != nil {
			return report, err
		}
		if version, err := inspector.ServerVersion(); err != nil {
			s.out.warn("Kubernetes API server unreachable: %v", err)
		} else {
			report.ServerVersion = version
			s.out.info("Kubernetes %s", version)
		}
		report.Rollout, report.RolloutErr = inspector.DeploymentStatus(ctx, s.cfg.Namespace, s.cfg.App.Name)
		if report.RolloutErr != nil {
			s.out.warn("Deployment '%s': %v", s.cfg.App.Name, report.RolloutErr)
		} else {
			s.out.info("Deployment '%s': %s", s.cfg.App.Name, report.Rollout)
		}
	}

	report.Access = s.access(ctx)
	report.Access.Write(s.out.w)
	return report, nil
}
