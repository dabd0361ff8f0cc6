package toolexec

import (
	"context"
	"io"
)

// Kubectl wraps kubectl, pinned to one kubeconfig context.
type Kubectl struct {
	Runner  Runner
	Context string
	// Kubeconfig, when set, replaces kubectl's default kubeconfig lookup.
	Kubeconfig string
}

func (k Kubectl) command(args ...string) Command {
	var global []string
	if k.Kubeconfig != "" {
		global = append(global, "--kubeconfig", k.Kubeconfig)
	}
	if k.Context != "" {
		global = append(global, "--context", k.Context)
	}
	return Command{Name: "kubectl", Args: append(global, args...)}
}

// NamespaceExists reports whether `kubectl get namespace <ns>` succeeds.
func (k Kubectl) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	_, err := k.Runner.Output(ctx, k.command("get", "namespace", namespace))
	if err == nil {
		return true, nil
	}
	if _, ok := ExitCode(err); ok {
		return false, nil
	}
	return false, err
}

// CreateNamespace creates the namespace.
func (k Kubectl) CreateNamespace(ctx context.Context, namespace string) error {
	return k.Runner.Run(ctx, k.command("create", "namespace", namespace))
}

// Apply applies a YAML stream read from manifests.
func (k Kubectl) Apply(ctx context.Context, namespace string, manifests io.Reader) error {
	cmd := k.command("apply", "-n", namespace, "-f", "-")
	cmd.Stdin = manifests
	return k.Runner.Run(ctx, cmd)
}

// ApplyDir applies every manifest in dir.
func (k Kubectl) ApplyDir(ctx context.Context, namespace, dir string) error {
	return k.Runner.Run(ctx, k.command("apply", "-n", namespace, "-f", dir))
}
