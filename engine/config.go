package engine

import (
	"log/slog"

	"github.com/samber/lo"
)

// Config describes the processing engine deployed on the fleet: where to
// fetch it, where it lives on the nodes, and how its services are driven.
// Script paths are resolved relative to InstallDir unless absolute.
type Config struct {
	Logger *slog.Logger

	// ClusterName is rendered into the environment file so jobs can tell
	// clusters apart.
	ClusterName string

	// ArtifactURL points at the engine tarball every node downloads.
	ArtifactURL string

	// InstallDir is the engine's home on each node.
	InstallDir string

	// EnvFile is where the rendered cluster environment lands.
	EnvFile string

	// Env adds deployment-specific variables to the environment file.
	Env map[string]string

	// ServicePort is the coordinator port workers connect to.
	ServicePort int

	StartCoordinator string
	StopCoordinator  string
	StartWorker      string
	StopWorker       string
	SubmitCommand    string
}

func (c Config) withDefaults() Config {
	c.InstallDir = lo.Must(lo.Coalesce(c.InstallDir, "/opt/deckhand/engine"))
	c.EnvFile = lo.Must(lo.Coalesce(c.EnvFile, "conf/cluster-env.sh"))
	c.StartCoordinator = lo.Must(lo.Coalesce(c.StartCoordinator, "sbin/start-master.sh"))
	c.StopCoordinator = lo.Must(lo.Coalesce(c.StopCoordinator, "sbin/stop-master.sh"))
	c.StartWorker = lo.Must(lo.Coalesce(c.StartWorker, "sbin/start-worker.sh"))
	c.StopWorker = lo.Must(lo.Coalesce(c.StopWorker, "sbin/stop-worker.sh"))
	c.SubmitCommand = lo.Must(lo.Coalesce(c.SubmitCommand, "bin/submit"))
	c.ServicePort = lo.Ternary(c.ServicePort == 0, 7077, c.ServicePort)
	return c
}
