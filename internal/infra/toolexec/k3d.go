package toolexec

import (
	"context"
	"strconv"
)

// K3d wraps the k3d CLI.
type K3d struct {
	Runner Runner
}

// ClusterExists reports whether `k3d cluster get <name>` succeeds.
// Any non-zero exit means the cluster does not exist; other failures are returned.
func (k K3d) ClusterExists(ctx context.Context, name string) (bool, error) {
	_, err := k.Runner.Output(ctx, Command{Name: "k3d", Args: []string{"cluster", "get", name}})
	if err == nil {
		return true, nil
	}
	if _, ok := ExitCode(err); ok {
		return false, nil
	}
	return false, err
}

// CreateCluster creates a cluster with the given number of agent nodes.
func (k K3d) CreateCluster(ctx context.Context, name string, agents int) error {
	args := []string{"cluster", "create", name}
	if agents > 0 {
		args = append(args, "--agents", strconv.Itoa(agents))
	}
	return k.Runner.Run(ctx, Command{Name: "k3d", Args: args})
}

// DeleteCluster deletes the cluster. k3d exits zero when it does not exist.
func (k K3d) DeleteCluster(ctx context.Context, name string) error {
	return k.Runner.Run(ctx, Command{Name: "k3d", Args: []string{"cluster", "delete", name}})
}

// MergeKubeconfig writes the cluster's context into the kubeconfig at path,
// leaving that file's current-context untouched.
func (k K3d) MergeKubeconfig(ctx context.Context, name, path string) error {
	return k.Runner.Run(ctx, Command{Name: "k3d", Args: []string{
		"kubeconfig", "merge", name, "--output", path, "--kubeconfig-switch-context=false",
	}})
}

// ImportImage copies a local image into every node of the cluster.
func (k K3d) ImportImage(ctx context.Context, ref, cluster string) error {
	return k.Runner.Run(ctx, Command{Name: "k3d", Args: []string{"image", "import", ref, "-c", cluster}})
}
