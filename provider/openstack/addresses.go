package openstack

import (
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/lakeward/deckhand/fleet"
)

// extractAddresses digs the first fixed and floating IPv4 addresses out of
// Nova's loosely typed Addresses payload. AccessIPv4 wins as the public
// address when set. Servers without a floating IP fall back to their fixed
// address on the public side, which is the norm on private clouds with
// routable tenant networks.
func extractAddresses(server *servers.Server) (private, public string) {
	for _, pool := range server.Addresses {
		members, ok := pool.([]any)
		if !ok {
			continue
		}
		for _, member := range members {
			attrs, ok := member.(map[string]any)
			if !ok {
				continue
			}
			addr, _ := attrs["addr"].(string)
			version, _ := attrs["version"].(float64)
			if addr == "" || version != 4 {
				continue
			}
			if attrs["OS-EXT-IPS:type"] == "floating" {
				if public == "" {
					public = addr
				}
			} else if private == "" {
				private = addr
			}
		}
	}

	if server.AccessIPv4 != "" {
		public = server.AccessIPv4
	}
	if public == "" {
		public = private
	}
	return private, public
}

// instanceState reduces Nova server statuses to the fleet's lifecycle view.
// Everything unexpected is treated as alive so it keeps showing up in
// listings instead of silently vanishing.
func instanceState(status string) fleet.InstanceState {
	switch status {
	case "ACTIVE":
		return fleet.InstanceStateRunning
	case "BUILD", "REBUILD":
		return fleet.InstanceStateBuilding
	case "DELETED", "SOFT_DELETED":
		return fleet.InstanceStateTerminated
	default:
		return fleet.InstanceStateUnknown
	}
}
