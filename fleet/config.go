package fleet

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// Cluster names end up embedded in node name labels, so they must stay
// within what every supported provider accepts as an instance name.
var clusterNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)

type Config struct {
	Logger *slog.Logger

	// ClusterName prefixes every node name label of the deployment.
	ClusterName string

	// InternalAddr resolves node addresses to the provider-private network
	// instead of the public one.
	InternalAddr bool

	// ProvisionAttempts bounds the convergence loop: how many rounds of
	// create, label, and verify before giving up on the missing nodes.
	ProvisionAttempts int

	// PollAttempts and PollInterval bound every confirmation poll against
	// the provider, both waiting for addresses and waiting for termination.
	PollAttempts int
	PollInterval time.Duration

	// BootstrapConcurrency caps how many workers are bootstrapped at once.
	BootstrapConcurrency int

	// TeardownOnFailure destroys the whole fleet when a bootstrap sequence
	// fails, instead of leaving a half-configured cluster running.
	TeardownOnFailure bool
}

func (c Config) Validate() error {
	if !clusterNameRegex.MatchString(c.ClusterName) {
		return fmt.Errorf("cluster name '%s' must match %s", c.ClusterName, clusterNameRegex)
	}
	if c.ProvisionAttempts < 1 {
		return fmt.Errorf("provision attempts must be at least 1, got %d", c.ProvisionAttempts)
	}
	if c.PollAttempts < 1 {
		return fmt.Errorf("poll attempts must be at least 1, got %d", c.PollAttempts)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.BootstrapConcurrency < 1 {
		return fmt.Errorf("bootstrap concurrency must be at least 1, got %d", c.BootstrapConcurrency)
	}
	return nil
}
