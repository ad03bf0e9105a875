package fleet

import (
	"context"
	"fmt"
)

// Directory is the read-through view over the provider's inventory. Every
// call issues a fresh query; nothing is cached between calls. It is the only
// path through which the rest of the system observes cluster membership.
type Directory struct {
	cloud  Cloud
	config Config
}

func NewDirectory(cloud Cloud, config Config) *Directory {
	return &Directory{cloud: cloud, config: config}
}

// List returns the deployment's live nodes, addresses resolved per the
// internal/public setting. Instances in terminal states are dropped; an
// instance whose address is not resolvable yet shows up with an empty Addr.
func (d *Directory) List(ctx context.Context) ([]Node, error) {
	instances, err := d.cloud.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	nodes := make([]Node, 0, len(instances))
	for _, instance := range instances {
		if instance.State.Terminal() {
			continue
		}
		nodes = append(nodes, Node{
			ID:   instance.ID,
			Name: instance.Name,
			Addr: d.resolveAddr(instance),
		})
	}
	return nodes, nil
}

func (d *Directory) resolveAddr(instance Instance) string {
	if d.config.InternalAddr {
		return instance.PrivateAddr
	}
	return instance.PublicAddr
}

// Instances returns the provider's raw inventory for the deployment,
// including instances that are still building or already terminated.
func (d *Directory) Instances(ctx context.Context) ([]Instance, error) {
	instances, err := d.cloud.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

// NextWorkerIndex returns one past the highest worker index the provider
// reports for this cluster. Terminal instances count too: as long as the
// provider remembers a worker, its index is never handed out again, so
// worker names stay unambiguous across removals.
func (d *Directory) NextWorkerIndex(ctx context.Context) (int, error) {
	instances, err := d.cloud.ListInstances(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list instances: %w", err)
	}

	highest := 0
	for _, instance := range instances {
		if index, ok := ParseWorkerIndex(d.config.ClusterName, instance.Name); ok && index > highest {
			highest = index
		}
	}
	return highest + 1, nil
}
