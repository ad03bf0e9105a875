// Package hetzner implements the fleet's cloud surface on Hetzner Cloud.
package hetzner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/anandvarma/namegen"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/lakeward/deckhand/fleet"
)

// labelKeyPair scopes listings to one deployment, mirroring what the
// keypair metadata does on OpenStack.
const labelKeyPair = "deckhand-keypair"

var names = namegen.New()

type Config struct {
	Logger *slog.Logger

	// Token authenticates against the Hetzner Cloud API.
	Token string

	// KeyPair is the name of the SSH key installed on new servers; its value
	// also labels every server of the deployment.
	KeyPair string

	Image    string
	Location string

	CoordinatorServerType string
	WorkerServerType      string
}

type Cloud struct {
	config Config
	client *hcloud.Client
	log    *slog.Logger
}

// Cloud implements fleet.Cloud
var _ fleet.Cloud = (*Cloud)(nil)

func New(config Config) (*Cloud, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("hcloud API token is required")
	}
	return &Cloud{
		config: config,
		client: hcloud.NewClient(hcloud.WithToken(config.Token)),
		log:    config.Logger.With("provider", "hetzner"),
	}, nil
}

// CreateInstances boots count servers one by one; the API has no batch
// create. A failure mid-batch keeps the servers created so far: they are
// returned as a short list and the caller tops up. Only a failure on the
// very first server is an error, since that usually means the request
// itself is broken.
func (c *Cloud) CreateInstances(ctx context.Context, role fleet.Role, count int) ([]string, error) {
	serverType := c.config.WorkerServerType
	if role == fleet.RoleCoordinator {
		serverType = c.config.CoordinatorServerType
	}

	key, _, err := c.client.SSHKey.GetByName(ctx, c.config.KeyPair)
	if err != nil {
		return nil, fmt.Errorf("failed to look up SSH key '%s': %w", c.config.KeyPair, err)
	}
	if key == nil {
		return nil, fmt.Errorf("SSH key '%s' does not exist", c.config.KeyPair)
	}

	var ids []string
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("deckhand-pending-%s", names.Get())
		c.log.Debug("Creating server", "name", name, "type", serverType)
		result, _, err := c.client.Server.Create(ctx, hcloud.ServerCreateOpts{
			Name:       name,
			ServerType: &hcloud.ServerType{Name: serverType},
			Image:      &hcloud.Image{Name: c.config.Image},
			Location:   &hcloud.Location{Name: c.config.Location},
			SSHKeys:    []*hcloud.SSHKey{key},
			Labels:     map[string]string{labelKeyPair: c.config.KeyPair},
		})
		if err != nil {
			if len(ids) == 0 {
				return nil, fmt.Errorf("failed to create server: %w", err)
			}
			c.log.Warn("Server creation failed mid-batch", "created", len(ids), "requested", count, "error", err)
			break
		}
		ids = append(ids, strconv.FormatInt(result.Server.ID, 10))
	}
	return ids, nil
}

// TagInstance renames the server to its fleet name label.
func (c *Cloud) TagInstance(ctx context.Context, id string, name string) error {
	serverID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid server id '%s': %w", id, err)
	}
	if _, _, err := c.client.Server.Update(ctx, &hcloud.Server{ID: serverID}, hcloud.ServerUpdateOpts{Name: name}); err != nil {
		return fmt.Errorf("failed to rename server '%s': %w", id, err)
	}
	return nil
}

// ListInstances returns every server labeled with the deployment's keypair.
// Hetzner drops deleted servers from listings almost immediately, so the
// terminal state is rarely observed here; a server that is gone simply stops
// being listed.
func (c *Cloud) ListInstances(ctx context.Context) ([]fleet.Instance, error) {
	all, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{
			LabelSelector: fmt.Sprintf("%s=%s", labelKeyPair, c.config.KeyPair),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	instances := make([]fleet.Instance, 0, len(all))
	for _, server := range all {
		instances = append(instances, serverInstance(server))
	}
	return instances, nil
}

func (c *Cloud) TerminateInstances(ctx context.Context, ids []string) error {
	for _, id := range ids {
		serverID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid server id '%s': %w", id, err)
		}
		if _, _, err := c.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: serverID}); err != nil {
			if hcloud.IsError(err, hcloud.ErrorCodeNotFound) {
				continue
			}
			return fmt.Errorf("failed to delete server '%s': %w", id, err)
		}
	}
	return nil
}

func serverInstance(server *hcloud.Server) fleet.Instance {
	instance := fleet.Instance{
		ID:    strconv.FormatInt(server.ID, 10),
		Name:  server.Name,
		State: instanceState(server.Status),
	}
	if len(server.PrivateNet) > 0 && server.PrivateNet[0].IP != nil {
		instance.PrivateAddr = server.PrivateNet[0].IP.String()
	}
	if !server.PublicNet.IPv4.IsUnspecified() {
		instance.PublicAddr = server.PublicNet.IPv4.IP.String()
	}
	// Servers without a private network still need an internal address.
	if instance.PrivateAddr == "" {
		instance.PrivateAddr = instance.PublicAddr
	}
	return instance
}

func instanceState(status hcloud.ServerStatus) fleet.InstanceState {
	switch status {
	case hcloud.ServerStatusRunning:
		return fleet.InstanceStateRunning
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting:
		return fleet.InstanceStateBuilding
	case hcloud.ServerStatusDeleting:
		// Still winding down: keep it visible until the API stops listing it,
		// so termination confirmation has something to poll.
		return fleet.InstanceStateUnknown
	default:
		return fleet.InstanceStateUnknown
	}
}
