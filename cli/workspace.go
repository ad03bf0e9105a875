package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/lakeward/deckhand/deployfile"
	"github.com/lakeward/deckhand/engine"
	"github.com/lakeward/deckhand/fleet"
	"github.com/lakeward/deckhand/provider/hetzner"
	"github.com/lakeward/deckhand/provider/openstack"
	"github.com/lakeward/deckhand/remote"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// workspace bundles everything a command needs to act on one deployment.
type workspace struct {
	deployfile   *deployfile.Deployfile
	directory    *fleet.Directory
	orchestrator *fleet.Orchestrator
	runner       *remote.Runner
	engine       *engine.Engine
}

func loadWorkspace() (*workspace, error) {
	file := viper.GetString(flagConfig)
	df, err := deployfile.Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment from '%s': %w", file, err)
	}

	cloud, err := buildCloud(df)
	if err != nil {
		return nil, err
	}

	config := fleet.Config{
		Logger:               logger,
		ClusterName:          df.Cluster,
		InternalAddr:         df.Network.Internal,
		ProvisionAttempts:    df.Provisioning.Attempts,
		PollAttempts:         df.Provisioning.PollAttempts,
		PollInterval:         df.PollInterval(),
		BootstrapConcurrency: df.Provisioning.BootstrapConcurrency,
		TeardownOnFailure:    df.Provisioning.TeardownOnFailure,
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deployment: %w", err)
	}

	runner, err := remote.NewRunner(remote.Config{
		Logger:  logger,
		User:    df.SSH.User,
		KeyFile: expandHome(df.SSH.KeyFile),
		Port:    df.SSH.Port,
	})
	if err != nil {
		return nil, err
	}

	directory := fleet.NewDirectory(cloud, config)
	manager := fleet.NewManager(cloud, directory, config)
	eng := engine.New(engine.Config{
		Logger:      logger,
		ClusterName: df.Cluster,
		ArtifactURL: df.Engine.Artifact,
		InstallDir:  df.Engine.InstallDir,
		EnvFile:     df.Engine.EnvFile,
		Env:         df.Engine.Env,
		ServicePort: df.Engine.ServicePort,
	}, runner)

	return &workspace{
		deployfile:   df,
		directory:    directory,
		orchestrator: fleet.NewOrchestrator(manager, directory, eng, config),
		runner:       runner,
		engine:       eng,
	}, nil
}

func buildCloud(df *deployfile.Deployfile) (fleet.Cloud, error) {
	switch provider := df.Provider; provider {
	case "openstack":
		return openstack.New(openstack.Config{
			Logger:            logger,
			KeyPair:           df.SSH.KeyPair,
			Image:             df.Image,
			CoordinatorFlavor: df.Coordinator.Flavor,
			WorkerFlavor:      df.Workers.Flavor,
			CoordinatorDiskGB: df.Coordinator.DiskGB,
			WorkerDiskGB:      df.Workers.DiskGB,
			Networks: lo.Map(df.Network.Networks, func(network string, _ int) servers.Network {
				return servers.Network{UUID: network}
			}),
			SecurityGroups: df.Network.SecurityGroups,
		})
	case "hetzner":
		return hetzner.New(hetzner.Config{
			Logger:                logger,
			Token:                 os.Getenv("HCLOUD_TOKEN"),
			KeyPair:               df.SSH.KeyPair,
			Image:                 df.Image,
			Location:              df.Location,
			CoordinatorServerType: df.Coordinator.Flavor,
			WorkerServerType:      df.Workers.Flavor,
		})
	default:
		return nil, fmt.Errorf("unknown provider '%s'", provider)
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
