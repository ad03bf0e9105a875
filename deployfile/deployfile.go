// Package deployfile loads and validates deckhand.yaml, the single file
// describing a cluster deployment.
package deployfile

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/samber/lo"
)

const DeployfileVersion = "1"

type Deployfile struct {
	Version  string
	Cluster  string
	Provider string

	Image    string
	Location string

	SSH     DeployfileSSH
	Network DeployfileNetwork

	Coordinator DeployfileNode
	Workers     DeployfileNode

	Engine       DeployfileEngine
	Provisioning DeployfileProvisioning
}

type DeployfileSSH struct {
	User    string
	KeyFile string `yaml:"key-file"`
	KeyPair string `yaml:"key-pair"`
	Port    int
}

type DeployfileNetwork struct {
	// Internal makes every node-to-operator connection use the provider's
	// private network instead of public addresses.
	Internal       bool
	Networks       []string
	SecurityGroups []string `yaml:"security-groups"`
}

type DeployfileNode struct {
	Flavor string
	DiskGB int `yaml:"disk-gb"`
}

type DeployfileEngine struct {
	Artifact    string
	InstallDir  string `yaml:"install-dir"`
	EnvFile     string `yaml:"env-file"`
	Env         map[string]string
	ServicePort int `yaml:"service-port"`
}

type DeployfileProvisioning struct {
	Attempts             int
	PollAttempts         int    `yaml:"poll-attempts"`
	PollInterval         string `yaml:"poll-interval"`
	BootstrapConcurrency int    `yaml:"bootstrap-concurrency"`
	TeardownOnFailure    bool   `yaml:"teardown-on-failure"`
}

var clusterRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)
var envKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)

var providers = []string{"openstack", "hetzner"}

func (deployfile Deployfile) Validate() error {
	if deployfile.Version != DeployfileVersion {
		return fmt.Errorf("unsupported version '%s'", deployfile.Version)
	}

	if !clusterRegex.MatchString(deployfile.Cluster) {
		return fmt.Errorf("cluster must be a valid identifier")
	}

	if !lo.Contains(providers, deployfile.Provider) {
		return fmt.Errorf("provider must be one of %v", providers)
	}

	if deployfile.Image == "" {
		return fmt.Errorf("image is required")
	}

	if deployfile.SSH.User == "" {
		return fmt.Errorf("ssh.user is required")
	}
	if deployfile.SSH.KeyFile == "" {
		return fmt.Errorf("ssh.key-file is required")
	}
	if deployfile.SSH.KeyPair == "" {
		return fmt.Errorf("ssh.key-pair is required")
	}

	if deployfile.Coordinator.Flavor == "" {
		return fmt.Errorf("coordinator.flavor is required")
	}
	if deployfile.Workers.Flavor == "" {
		return fmt.Errorf("workers.flavor is required")
	}

	if deployfile.Engine.Artifact == "" {
		return fmt.Errorf("engine.artifact is required")
	}
	if parsed, err := url.Parse(deployfile.Engine.Artifact); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("engine.artifact must be an http(s) URL")
	}
	for key := range deployfile.Engine.Env {
		if !envKeyRegex.MatchString(key) {
			return fmt.Errorf("engine.env[%s] must be a valid environment variable identifier", key)
		}
	}

	if deployfile.Provisioning.Attempts < 1 {
		return fmt.Errorf("provisioning.attempts must be at least 1")
	}
	if deployfile.Provisioning.PollAttempts < 1 {
		return fmt.Errorf("provisioning.poll-attempts must be at least 1")
	}
	if interval, err := time.ParseDuration(deployfile.Provisioning.PollInterval); err != nil {
		return fmt.Errorf("provisioning.poll-interval is not a valid duration: %w", err)
	} else if interval <= 0 {
		return fmt.Errorf("provisioning.poll-interval must be positive")
	}
	if deployfile.Provisioning.BootstrapConcurrency < 1 {
		return fmt.Errorf("provisioning.bootstrap-concurrency must be at least 1")
	}

	return nil
}

// PollInterval returns the parsed poll interval. Only valid after Validate.
func (deployfile Deployfile) PollInterval() time.Duration {
	return lo.Must(time.ParseDuration(deployfile.Provisioning.PollInterval))
}
