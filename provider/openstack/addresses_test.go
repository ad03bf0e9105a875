package openstack

import (
	"testing"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/lakeward/deckhand/fleet"
	"github.com/stretchr/testify/assert"
)

func TestExtractAddressesPrefersFloatingForPublic(t *testing.T) {
	server := &servers.Server{
		Addresses: map[string]any{
			"tenant-net": []any{
				map[string]any{"addr": "10.11.12.13", "version": float64(4), "OS-EXT-IPS:type": "fixed"},
				map[string]any{"addr": "fe80::1", "version": float64(6), "OS-EXT-IPS:type": "fixed"},
				map[string]any{"addr": "203.0.113.9", "version": float64(4), "OS-EXT-IPS:type": "floating"},
			},
		},
	}

	private, public := extractAddresses(server)

	assert.Equal(t, "10.11.12.13", private)
	assert.Equal(t, "203.0.113.9", public)
}

func TestExtractAddressesFallsBackToFixedForPublic(t *testing.T) {
	server := &servers.Server{
		Addresses: map[string]any{
			"tenant-net": []any{
				map[string]any{"addr": "10.11.12.13", "version": float64(4), "OS-EXT-IPS:type": "fixed"},
			},
		},
	}

	private, public := extractAddresses(server)

	assert.Equal(t, "10.11.12.13", private)
	assert.Equal(t, "10.11.12.13", public)
}

func TestExtractAddressesHonorsAccessIPv4(t *testing.T) {
	server := &servers.Server{
		AccessIPv4: "198.51.100.20",
		Addresses: map[string]any{
			"tenant-net": []any{
				map[string]any{"addr": "10.11.12.13", "version": float64(4), "OS-EXT-IPS:type": "fixed"},
			},
		},
	}

	private, public := extractAddresses(server)

	assert.Equal(t, "10.11.12.13", private)
	assert.Equal(t, "198.51.100.20", public)
}

func TestExtractAddressesToleratesGarbage(t *testing.T) {
	server := &servers.Server{
		Addresses: map[string]any{
			"weird":  "not-a-list",
			"weird2": []any{"not-a-map", map[string]any{"version": float64(4)}},
		},
	}

	private, public := extractAddresses(server)

	assert.Empty(t, private)
	assert.Empty(t, public)
}

func TestInstanceStateMapping(t *testing.T) {
	assert.Equal(t, fleet.InstanceStateRunning, instanceState("ACTIVE"))
	assert.Equal(t, fleet.InstanceStateBuilding, instanceState("BUILD"))
	assert.Equal(t, fleet.InstanceStateBuilding, instanceState("REBUILD"))
	assert.Equal(t, fleet.InstanceStateTerminated, instanceState("DELETED"))
	assert.Equal(t, fleet.InstanceStateTerminated, instanceState("SOFT_DELETED"))
	assert.Equal(t, fleet.InstanceStateUnknown, instanceState("ERROR"))
	assert.Equal(t, fleet.InstanceStateUnknown, instanceState("PAUSED"))
}
