package toolexec

import (
	"context"
	"sort"
	"strings"
	"time"
)

// setEscaper protects helm's --set separators inside a value: a comma would
// otherwise start a new key, and a backslash is helm's own escape character.
var setEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`)

// Helm wraps the helm CLI, pinned to one kubeconfig context.
type Helm struct {
	Runner      Runner
	KubeContext string
	// Kubeconfig, when set, replaces helm's default kubeconfig lookup.
	Kubeconfig string
}

// Release describes a `helm upgrade --install` invocation.
type Release struct {
	Name      string
	Chart     string
	Version   string
	Namespace string
	// Values are passed as --set key=value, sorted by key. Commas and
	// backslashes in a value are escaped, so a value is always one string.
	Values  map[string]string
	Wait    bool
	Timeout time.Duration
}

// RepoAdd registers a chart repository. helm exits non-zero when the repository
// already exists with a different URL; callers decide whether that matters.
func (h Helm) RepoAdd(ctx context.Context, name, url string) error {
	return h.Runner.Run(ctx, Command{Name: "helm", Args: []string{"repo", "add", name, url}})
}

// RepoUpdate refreshes the local chart index of every repository.
func (h Helm) RepoUpdate(ctx context.Context) error {
	return h.Runner.Run(ctx, Command{Name: "helm", Args: []string{"repo", "update"}})
}

// UpgradeInstall installs the release, or upgrades it when it already exists.
func (h Helm) UpgradeInstall(ctx context.Context, rel Release) error {
	return h.Runner.Run(ctx, Command{Name: "helm", Args: h.upgradeArgs(rel)})
}

func (h Helm) upgradeArgs(rel Release) []string {
	args := []string{"upgrade", "--install", rel.Name, rel.Chart, "--namespace", rel.Namespace}
	if h.Kubeconfig != "" {
		args = append(args, "--kubeconfig", h.Kubeconfig)
	}
	if h.KubeContext != "" {
		args = append(args, "--kube-context", h.KubeContext)
	}
	if rel.Version != "" {
		args = append(args, "--version", rel.Version)
	}
	if rel.Wait {
		args = append(args, "--wait")
		if rel.Timeout > 0 {
			args = append(args, "--timeout", rel.Timeout.String())
		}
	}

	keys := make([]string, 0, len(rel.Values))
	for k := range rel.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", k+"="+setEscaper.Replace(rel.Values[k]))
	}
	return args
}
