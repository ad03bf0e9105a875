package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Orchestrator drives whole-cluster transitions: coordinator bring-up,
// concurrent worker bring-up, ordered restarts, and teardown. Transitions
// are operator-driven; there is no background reconciliation, and every
// transition starts by rebuilding its view of the fleet from the provider.
type Orchestrator struct {
	manager   *Manager
	directory *Directory
	bootstrap Bootstrap
	config    Config
	log       *slog.Logger
}

func NewOrchestrator(manager *Manager, directory *Directory, bootstrap Bootstrap, config Config) *Orchestrator {
	return &Orchestrator{
		manager:   manager,
		directory: directory,
		bootstrap: bootstrap,
		config:    config,
		log:       config.Logger.With("component", "orchestrator"),
	}
}

// View is the cluster as derived from a single directory listing: the
// coordinator when one exists, and the workers sorted by index.
type View struct {
	Coordinator *Node
	Workers     []Node
}

// Fleet lists the deployment and sorts its nodes into the cluster view.
// Instances that carry neither the coordinator name nor a worker name are
// ignored here; they are visible through the directory only.
func (o *Orchestrator) Fleet(ctx context.Context) (View, error) {
	nodes, err := o.directory.List(ctx)
	if err != nil {
		return View{}, err
	}

	var view View
	coordinatorName := CoordinatorName(o.config.ClusterName)
	for _, node := range nodes {
		if node.Name == coordinatorName {
			if view.Coordinator == nil {
				view.Coordinator = lo.ToPtr(node)
			}
			continue
		}
		if _, ok := ParseWorkerIndex(o.config.ClusterName, node.Name); ok {
			view.Workers = append(view.Workers, node)
		}
	}
	sort.Slice(view.Workers, func(i, j int) bool {
		a, _ := ParseWorkerIndex(o.config.ClusterName, view.Workers[i].Name)
		b, _ := ParseWorkerIndex(o.config.ClusterName, view.Workers[j].Name)
		return a < b
	})
	return view, nil
}

// CreateCoordinator provisions the cluster's singleton coordinator and runs
// its bootstrap sequence. It refuses to run when a coordinator already
// exists; destroy the cluster first.
func (o *Orchestrator) CreateCoordinator(ctx context.Context) (Node, error) {
	view, err := o.Fleet(ctx)
	if err != nil {
		return Node{}, err
	}
	if view.Coordinator != nil {
		return Node{}, ErrCoordinatorExists
	}

	nodes, err := o.manager.EnsureNodes(ctx, RoleCoordinator, []string{CoordinatorName(o.config.ClusterName)})
	if err != nil {
		return Node{}, err
	}
	coordinator := nodes[0]

	o.log.Info("Bootstrapping coordinator", "node", coordinator.Name, "addr", coordinator.Addr)
	if err := o.bootstrapNode(ctx, coordinator, coordinator, RoleCoordinator); err != nil {
		return Node{}, o.bootstrapFailed(ctx, err)
	}
	return coordinator, nil
}

// AddWorkers provisions count new workers and bootstraps them concurrently,
// at most BootstrapConcurrency at a time. Sibling bootstraps are independent:
// every one of them runs to completion no matter how its siblings fare, and
// only then is the aggregate outcome decided. On failure the earliest failed
// worker's error is returned; with teardown disabled the successfully
// bootstrapped workers stay in the fleet.
func (o *Orchestrator) AddWorkers(ctx context.Context, count int) ([]Node, error) {
	if count < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", count)
	}

	view, err := o.Fleet(ctx)
	if err != nil {
		return nil, err
	}
	if view.Coordinator == nil {
		return nil, ErrNoCoordinator
	}
	coordinator := *view.Coordinator

	next, err := o.directory.NextWorkerIndex(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, count)
	for i := range names {
		names[i] = WorkerName(o.config.ClusterName, next+i)
	}

	nodes, err := o.manager.EnsureNodes(ctx, RoleWorker, names)
	if err != nil {
		return nil, err
	}

	o.log.Info("Bootstrapping workers", "count", len(nodes), "concurrency", o.config.BootstrapConcurrency)
	slots := make(chan struct{}, o.config.BootstrapConcurrency)
	results := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node Node) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			results[i] = o.bootstrapNode(ctx, node, coordinator, RoleWorker)
		}(i, node)
	}
	wg.Wait()

	for _, err := range results {
		if err != nil {
			return nil, o.bootstrapFailed(ctx, err)
		}
	}
	return nodes, nil
}

// RemoveWorkers terminates the count highest-indexed workers and returns
// them. Surviving workers keep their names, and removed indices are never
// handed out again.
func (o *Orchestrator) RemoveWorkers(ctx context.Context, count int) ([]Node, error) {
	if count < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", count)
	}

	view, err := o.Fleet(ctx)
	if err != nil {
		return nil, err
	}
	if count > len(view.Workers) {
		return nil, fmt.Errorf("cannot remove %d worker(s), the cluster only has %d", count, len(view.Workers))
	}

	removed := view.Workers[len(view.Workers)-count:]
	ids := lo.Map(removed, func(node Node, _ int) string { return node.ID })
	if err := o.manager.RemoveNodes(ctx, ids); err != nil {
		return nil, err
	}
	return removed, nil
}

// RestartCluster rewrites every node's environment and bounces the engine
// services in strict order: configuration first everywhere, then workers
// stop, the coordinator restarts alone, and workers come back last so they
// never try to join a coordinator that is mid-restart. Everything runs
// sequentially; a failure aborts the remaining steps and leaves the cluster
// where it stopped.
func (o *Orchestrator) RestartCluster(ctx context.Context) error {
	view, err := o.Fleet(ctx)
	if err != nil {
		return err
	}
	if view.Coordinator == nil {
		return ErrNoCoordinator
	}
	coordinator := *view.Coordinator

	o.log.Info("Reconfiguring cluster", "workers", len(view.Workers))
	if err := o.bootstrap.Configure(ctx, coordinator, coordinator); err != nil {
		return &BootstrapError{Node: coordinator.Name, Err: err}
	}
	for _, worker := range view.Workers {
		if err := o.bootstrap.Configure(ctx, worker, coordinator); err != nil {
			return &BootstrapError{Node: worker.Name, Err: err}
		}
	}

	o.log.Info("Restarting cluster")
	for _, worker := range view.Workers {
		if err := o.bootstrap.Stop(ctx, worker, RoleWorker); err != nil {
			return &BootstrapError{Node: worker.Name, Err: err}
		}
	}
	if err := o.bootstrap.Stop(ctx, coordinator, RoleCoordinator); err != nil {
		return &BootstrapError{Node: coordinator.Name, Err: err}
	}
	if err := o.bootstrap.Start(ctx, coordinator, RoleCoordinator); err != nil {
		return &BootstrapError{Node: coordinator.Name, Err: err}
	}
	for _, worker := range view.Workers {
		if err := o.bootstrap.Start(ctx, worker, RoleWorker); err != nil {
			return &BootstrapError{Node: worker.Name, Err: err}
		}
	}
	return nil
}

// DestroyFleet terminates the coordinator and every worker in one batch and
// waits for the provider to confirm. Destroying a cluster that does not
// exist is a no-op.
func (o *Orchestrator) DestroyFleet(ctx context.Context) error {
	view, err := o.Fleet(ctx)
	if err != nil {
		return err
	}

	ids := lo.Map(view.Workers, func(node Node, _ int) string { return node.ID })
	if view.Coordinator != nil {
		ids = append(ids, view.Coordinator.ID)
	}
	if len(ids) == 0 {
		o.log.Info("Nothing to destroy")
		return nil
	}

	o.log.Info("Destroying fleet", "nodes", len(ids))
	return o.manager.RemoveNodes(ctx, ids)
}

// bootstrapNode runs the full setup chain for one node. The chain is strictly
// ordered; the first failing step aborts the rest.
func (o *Orchestrator) bootstrapNode(ctx context.Context, node Node, coordinator Node, role Role) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"install", func() error { return o.bootstrap.Install(ctx, node) }},
		{"configure", func() error { return o.bootstrap.Configure(ctx, node, coordinator) }},
		{"start", func() error { return o.bootstrap.Start(ctx, node, role) }},
	}
	for _, step := range steps {
		o.log.Debug("Running bootstrap step", "node", node.Name, "step", step.name)
		if err := step.run(); err != nil {
			return &BootstrapError{Node: node.Name, Err: fmt.Errorf("%s: %w", step.name, err)}
		}
	}
	return nil
}

// bootstrapFailed applies the fail-fast teardown policy before surfacing the
// bootstrap error. Teardown problems are logged, never allowed to mask the
// original failure.
func (o *Orchestrator) bootstrapFailed(ctx context.Context, err error) error {
	if !o.config.TeardownOnFailure {
		return err
	}
	o.log.Warn("Tearing down fleet after bootstrap failure", "error", err)
	if teardownErr := o.DestroyFleet(ctx); teardownErr != nil {
		o.log.Error("Failed to tear down fleet", "error", teardownErr)
	}
	return err
}
