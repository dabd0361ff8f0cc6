package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"monitoring-app/internal/config"
	"monitoring-app/internal/infra/toolexec"
	"monitoring-app/internal/observability/logging"
	"monitoring-app/internal/usecase/deploy"
)

// Overridden in tests to avoid running real tools or dialing a cluster.
var (
	newRunner = func(out io.Writer, logger *slog.Logger) toolexec.Runner {
		return toolexec.NewExecRunner(out, logger)
	}
	newInspector deploy.InspectorFactory = deploy.KubeInspector
)

type globalOptions struct {
	configPath string
	cluster    string
	namespace  string
	image      string
	verbose    bool
}

type app struct {
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the metrics app and a Prometheus/Grafana stack to a local k3d cluster",
		Long: `deploy drives docker, k3d, kubectl and helm to create a local Kubernetes
cluster, load the metrics app into it, install kube-prometheus-stack and
print where to reach the app, Prometheus and Grafana.

Running it without a subcommand is the same as "deploy deploy".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          a.runDeploy,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.opts.cluster, "cluster", "", "k3d cluster name (default main-cluster)")
	pf.StringVarP(&a.opts.namespace, "namespace", "n", "", "Kubernetes namespace (default monitoring-app)")
	pf.StringVar(&a.opts.image, "image", "", "app image as name[:tag] (default metrics-app:latest)")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(a.deployCmd())
	rootCmd.AddCommand(a.cleanupCmd())
	rootCmd.AddCommand(a.statusCmd())
	rootCmd.AddCommand(a.manifestsCmd())
	rootCmd.AddCommand(a.dashboardCmd())

	return rootCmd
}

func (a *app) logger() *slog.Logger {
	return logging.NewCLILogger(a.stderr, a.opts.verbose)
}

// loadConfig layers flags over the file and environment configuration.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return nil, err
	}
	if a.opts.cluster != "" {
		cfg.Cluster.Name = a.opts.cluster
	}
	if a.opts.namespace != "" {
		cfg.Namespace = a.opts.namespace
	}
	if a.opts.image != "" {
		cfg.Image.Name, cfg.Image.Tag = splitImage(a.opts.image, cfg.Image.Tag)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitImage splits "name[:tag]". A colon inside a registry host
// ("localhost:5000/app") is not a tag separator.
func splitImage(ref, defaultTag string) (name, tag string) {
	slash := strings.LastIndex(ref, "/")
	if i := strings.LastIndex(ref, ":"); i > slash {
		return ref[:i], ref[i+1:]
	}
	return ref, defaultTag
}

func (a *app) newService() (*deploy.Service, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := a.logger()
	slog.SetDefault(logger)
	logger.Debug("configuration loaded",
		slog.String("cluster", cfg.Cluster.Name),
		slog.String("namespace", cfg.Namespace),
		slog.String("image", cfg.ImageRef()),
		slog.String("kube_context", cfg.KubeContext()))

	runner := newRunner(a.stdout, logger)
	return deploy.NewService(cfg, runner, newInspector, a.stdout, logger), nil
}

// timed prints the total execution time once fn returns, successful or not.
func (a *app) timed(fn func() error) error {
	start := time.Now()
	defer func() {
		fmt.Fprintf(a.stdout, "Total execution time: %.2f seconds.\n", time.Since(start).Seconds())
	}()
	return fn()
}

func (a *app) runDeploy(cmd *cobra.Command, _ []string) error {
	return a.timed(func() error {
		svc, err := a.newService()
		if err != nil {
			return err
		}
		_, err = svc.Deploy(cmd.Context())
		return err
	})
}
