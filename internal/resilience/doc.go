// Package resilience provides fault tolerance helpers for talking to a
// freshly created local cluster, whose API server and workloads take a while
// to settle.
//
// Usage Example:
//
//	err := retry.WithBackoff(ctx, retry.RolloutConfig(), func() error {
//	    return checkDeploymentReady()
//	})
package resilience
