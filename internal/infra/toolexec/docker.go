package toolexec

import "context"

// Docker wraps the docker CLI.
type Docker struct {
	Runner Runner
}

// Build builds the image ref from buildContext. dockerfile may be empty.
func (d Docker) Build(ctx context.Context, ref, buildContext, dockerfile string) error {
	args := []string{"build", "-t", ref}
	if dockerfile != "" {
		args = append(args, "-f", dockerfile)
	}
	args = append(args, buildContext)
	return d.Runner.Run(ctx, Command{Name: "docker", Args: args})
}
