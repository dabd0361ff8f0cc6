package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"monitoring-app/internal/manifests"
)

func (a *app) deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Create the cluster and deploy the app and monitoring stack",
		Long: `Create the k3d cluster if needed, build and import the app image,
install or upgrade kube-prometheus-stack, apply the app manifests and
print the access URLs. Safe to re-run: existing resources are reused.`,
		Args: cobra.NoArgs,
		RunE: a.runDeploy,
	}
}

func (a *app) cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the k3d cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.timed(func() error {
				svc, err := a.newService()
				if err != nil {
					return err
				}
				return svc.Cleanup(cmd.Context())
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the environment is running and where to reach it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newService()
			if err != nil {
				return err
			}
			_, err = svc.Status(cmd.Context())
			return err
		},
	}
}

func (a *app) manifestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifests",
		Short: "Print the Kubernetes manifests of the app",
		Long: `Print the Namespace, Deployment, Service, ServiceMonitor and dashboard
ConfigMap applied by "deploy deploy" as a YAML stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			out, err := manifests.Render(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func (a *app) dashboardCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Write the Grafana dashboard JSON for manual import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := manifests.Dashboard()
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write dashboard: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard written to %s. Import it in Grafana under Dashboards > New > Import.\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
