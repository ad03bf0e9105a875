// Package fleet provisions, bootstraps, and tears down named clusters of
// cloud instances. It keeps no state of its own: the provider's inventory is
// the only source of truth, and every decision starts from a fresh listing.
package fleet

import (
	"fmt"
	"strconv"
	"strings"
)

// Role determines a node's sizing, naming, and which engine service it runs.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleWorker      Role = "worker"
)

// Node is a live instance as the rest of the system sees it: the provider
// id, the assigned name label, and the address resolved per the deployment's
// visibility setting. Nodes are plain values; any change on the provider
// side only becomes visible through a fresh listing.
type Node struct {
	ID   string
	Name string
	Addr string
}

func (n Node) String() string {
	return fmt.Sprintf("%s (%s)", n.Name, n.ID)
}

// Instance is a raw provider inventory entry, before liveness filtering and
// address resolution turn it into a Node.
type Instance struct {
	ID          string
	Name        string
	State       InstanceState
	PrivateAddr string
	PublicAddr  string
}

// InstanceState is the provider lifecycle state, reduced to the few
// distinctions the fleet acts on. Anything a provider reports that has no
// mapping lands on InstanceStateUnknown, which is treated as alive.
type InstanceState string

const (
	InstanceStateRunning    InstanceState = "running"
	InstanceStateBuilding   InstanceState = "building"
	InstanceStateTerminated InstanceState = "terminated"
	InstanceStateUnknown    InstanceState = "unknown"
)

// Terminal reports whether the instance is gone for good. Terminal instances
// are excluded from directory listings but still count for index allocation.
func (s InstanceState) Terminal() bool {
	return s == InstanceStateTerminated
}

// CoordinatorName returns the name label of the cluster's singleton
// coordinator node.
func CoordinatorName(cluster string) string {
	return cluster + "-master"
}

// WorkerName returns the name label of the worker at the given index.
// Indices start at 1, grow strictly, and are never reused within the
// lifetime of a cluster name.
func WorkerName(cluster string, index int) string {
	return fmt.Sprintf("%s-worker-%d", cluster, index)
}

// ParseWorkerIndex extracts the index from a worker name label. It reports
// false for anything that is not a worker of this cluster, including the
// coordinator and workers of other clusters.
func ParseWorkerIndex(cluster, name string) (int, bool) {
	suffix, found := strings.CutPrefix(name, cluster+"-worker-")
	if !found {
		return 0, false
	}
	index, err := strconv.Atoi(suffix)
	if err != nil || index < 1 {
		return 0, false
	}
	return index, true
}
