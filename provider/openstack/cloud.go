// Package openstack implements the fleet's cloud surface on OpenStack
// Compute (Nova). Credentials come from the usual OS_* environment
// variables.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anandvarma/namegen"
	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/bootfromvolume"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/lakeward/deckhand/fleet"
	"github.com/lakeward/deckhand/internal/retry"
)

// Metadata keys marking deckhand-managed servers. The keypair tag scopes
// listings to one deployment; the batch tag recovers the members of a single
// create request.
const (
	metaKeyPair = "deckhand-keypair"
	metaBatch   = "deckhand-batch"
)

// Nova acknowledges a batch create with a single server; the remaining
// members surface in listings shortly after.
const (
	batchListAttempts = 5
	batchListInterval = 2 * time.Second
)

var errBatchIncomplete = errors.New("batch incomplete")

var names = namegen.New()

type Cloud struct {
	config Config
	client *gophercloud.ServiceClient
	log    *slog.Logger
}

// Cloud implements fleet.Cloud
var _ fleet.Cloud = (*Cloud)(nil)

func New(config Config) (*Cloud, error) {
	opts, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth options from env: %w", err)
	}

	provider, err := openstack.AuthenticatedClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client: %w", err)
	}

	client, err := openstack.NewComputeV2(provider, gophercloud.EndpointOpts{
		Region: os.Getenv("OS_REGION_NAME"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get compute client: %w", err)
	}

	return &Cloud{
		config: config,
		client: client,
		log:    config.Logger.With("provider", "openstack"),
	}, nil
}

// CreateInstances boots count servers in a single batch request. All batch
// members start out under a scratch name; the lifecycle layer assigns real
// name labels afterwards. The create response only carries one member, so
// the full batch is recovered by listing its batch tag. Nova may realize
// fewer members than requested; the short id list is returned as-is and the
// caller tops up.
func (c *Cloud) CreateInstances(ctx context.Context, role fleet.Role, count int) ([]string, error) {
	batchID := names.Get()

	flavor, diskGB := c.config.WorkerFlavor, c.config.WorkerDiskGB
	if role == fleet.RoleCoordinator {
		flavor, diskGB = c.config.CoordinatorFlavor, c.config.CoordinatorDiskGB
	}

	var opts servers.CreateOptsBuilder = servers.CreateOpts{
		Name:           fmt.Sprintf("deckhand-pending-%s", batchID),
		ImageRef:       c.config.Image,
		FlavorRef:      flavor,
		Networks:       c.config.Networks,
		SecurityGroups: c.config.SecurityGroups,
		Min:            count,
		Max:            count,
		Metadata: map[string]string{
			metaKeyPair: c.config.KeyPair,
			metaBatch:   batchID,
		},
	}
	if diskGB > 0 {
		opts = bootfromvolume.CreateOptsExt{
			CreateOptsBuilder: opts,
			BlockDevice: []bootfromvolume.BlockDevice{{
				UUID:                c.config.Image,
				SourceType:          bootfromvolume.SourceImage,
				DestinationType:     bootfromvolume.DestinationVolume,
				VolumeSize:          diskGB,
				DeleteOnTermination: true,
			}},
		}
	}
	opts = keypairs.CreateOptsExt{
		CreateOptsBuilder: opts,
		KeyName:           c.config.KeyPair,
	}

	c.log.Debug("Creating server batch", "batch", batchID, "count", count, "flavor", flavor)
	if _, err := servers.Create(c.client, opts).Extract(); err != nil {
		return nil, fmt.Errorf("failed to create %d server(s): %w", count, err)
	}

	var ids []string
	err := retry.Do(ctx, batchListAttempts, batchListInterval, func() error {
		batch, err := c.listBatch(batchID)
		if err != nil {
			return err
		}
		ids = batch
		if len(ids) < count {
			return errBatchIncomplete
		}
		return nil
	})
	if err != nil && !errors.Is(err, errBatchIncomplete) {
		return nil, fmt.Errorf("failed to list members of batch '%s': %w", batchID, err)
	}
	return ids, nil
}

func (c *Cloud) listBatch(batchID string) ([]string, error) {
	all, err := c.listServers()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, server := range all {
		if server.Metadata[metaBatch] == batchID && !instanceState(server.Status).Terminal() {
			ids = append(ids, server.ID)
		}
	}
	return ids, nil
}

// TagInstance renames the server to its fleet name label. On Nova the server
// name is the label; nothing else identifies a node's role.
func (c *Cloud) TagInstance(ctx context.Context, id string, name string) error {
	if _, err := servers.Update(c.client, id, servers.UpdateOpts{Name: name}).Extract(); err != nil {
		return fmt.Errorf("failed to rename server '%s': %w", id, err)
	}
	return nil
}

func (c *Cloud) ListInstances(ctx context.Context) ([]fleet.Instance, error) {
	all, err := c.listServers()
	if err != nil {
		return nil, err
	}

	var instances []fleet.Instance
	for _, server := range all {
		if server.Metadata[metaKeyPair] != c.config.KeyPair {
			continue
		}
		private, public := extractAddresses(&server)
		instances = append(instances, fleet.Instance{
			ID:          server.ID,
			Name:        server.Name,
			State:       instanceState(server.Status),
			PrivateAddr: private,
			PublicAddr:  public,
		})
	}
	return instances, nil
}

func (c *Cloud) TerminateInstances(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := servers.Delete(c.client, id).ExtractErr(); err != nil {
			var notFound gophercloud.ErrDefault404
			if errors.As(err, &notFound) {
				continue
			}
			return fmt.Errorf("failed to delete server '%s': %w", id, err)
		}
	}
	return nil
}

func (c *Cloud) listServers() ([]servers.Server, error) {
	pages, err := servers.List(c.client, servers.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	all, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract servers: %w", err)
	}
	return all, nil
}
