package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/lakeward/deckhand/fleet"
	"github.com/lakeward/deckhand/provider/hetzner"
	"github.com/lakeward/deckhand/provider/openstack"
	"github.com/samber/lo"
)

// Manual smoke test for the provider implementations: provisions two scratch
// workers, prints them, and tears them down again. Interrupt to abort early.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var providerID = os.Getenv("PROVIDER")
	var cloud fleet.Cloud
	var err error

	switch providerID {
	case "openstack":
		cloud, err = openstack.New(openstack.Config{
			Logger:  logger,
			KeyPair: "deckhand-playground",

			Image:             "b9245b73-edf4-4d0c-ae7c-8e7e6e4b2b15", // debian-12-genericcloud-amd64
			CoordinatorFlavor: "a2-ram4-disk20-perf1",
			WorkerFlavor:      "a2-ram4-disk20-perf1",
			Networks: []servers.Network{
				{UUID: "dcf25c41-9057-4bc2-8475-a2e3c5d8c662"}, // ext-net-1
			},
			SecurityGroups: []string{"deckhand-playground"},
		})
	case "hetzner":
		cloud, err = hetzner.New(hetzner.Config{
			Logger:                logger,
			Token:                 os.Getenv("HCLOUD_TOKEN"),
			KeyPair:               "deckhand-playground",
			Image:                 "debian-12",
			Location:              "fsn1",
			CoordinatorServerType: "cx22",
			WorkerServerType:      "cx22",
		})
	default:
		cloud, err = nil, fmt.Errorf("unknown provider '%s'", providerID)
	}
	if err != nil {
		fmt.Println(fmt.Errorf("unable to create provider '%s': %w", providerID, err).Error())
		os.Exit(1)
	}

	config := fleet.Config{
		Logger:               logger,
		ClusterName:          "sandbox",
		ProvisionAttempts:    3,
		PollAttempts:         20,
		PollInterval:         5 * time.Second,
		BootstrapConcurrency: 4,
	}
	directory := fleet.NewDirectory(cloud, config)
	manager := fleet.NewManager(cloud, directory, config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	names := []string{
		fleet.WorkerName(config.ClusterName, 1),
		fleet.WorkerName(config.ClusterName, 2),
	}
	nodes, err := manager.EnsureNodes(ctx, fleet.RoleWorker, names)
	if err != nil {
		fmt.Println(fmt.Errorf("unable to provision workers: %w", err).Error())
		os.Exit(1)
	}
	for _, node := range nodes {
		fmt.Printf("%s is up at %s\n", node, node.Addr)
	}

	ids := lo.Map(nodes, func(node fleet.Node, _ int) string { return node.ID })
	if err := manager.RemoveNodes(ctx, ids); err != nil {
		fmt.Println(fmt.Errorf("unable to terminate workers: %w", err).Error())
		os.Exit(1)
	}
	fmt.Println("all clear")
}
