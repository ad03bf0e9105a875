package openstack

import (
	"log/slog"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
)

type Config struct {
	Logger *slog.Logger

	// KeyPair is injected into every instance for SSH access. Its name also
	// marks instances as belonging to this deployment: listings only return
	// servers tagged with it.
	KeyPair string

	// Image is the image id or name every node boots from.
	Image string

	CoordinatorFlavor string
	WorkerFlavor      string

	// Disk sizes in GB. Zero keeps the flavor's ephemeral disk; anything
	// else boots from a volume of that size.
	CoordinatorDiskGB int
	WorkerDiskGB      int

	Networks       []servers.Network
	SecurityGroups []string
}
