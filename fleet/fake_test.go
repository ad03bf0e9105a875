package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

func testConfig() Config {
	return Config{
		Logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		ClusterName:          "crunch",
		ProvisionAttempts:    3,
		PollAttempts:         5,
		PollInterval:         time.Millisecond,
		BootstrapConcurrency: 4,
	}
}

func newTestOrchestrator(cloud *fakeCloud, bootstrap Bootstrap, config Config) *Orchestrator {
	directory := NewDirectory(cloud, config)
	manager := NewManager(cloud, directory, config)
	return NewOrchestrator(manager, directory, bootstrap, config)
}

func newTestManager(cloud *fakeCloud, config Config) *Manager {
	return NewManager(cloud, NewDirectory(cloud, config), config)
}

// fakeCloud is an in-memory provider inventory with scriptable misbehavior.
// The zero value is a well-behaved provider; knobs turn on specific failure
// modes per test.
type fakeCloud struct {
	mu  sync.Mutex
	seq int

	instances []*fakeInstance

	createCalls    int
	terminateCalls int
	terminated     []string

	// failCreates makes the next n CreateInstances calls fail outright.
	failCreates int
	// short makes every create batch deliver that many instances fewer
	// than requested.
	short int
	// failTagNext marks the next n created instances as impossible to label.
	failTagNext int
	// noAddrNext marks the next n created instances as never addressable.
	noAddrNext int
	// terminationLag is how many listings an instance stays alive after its
	// termination was requested.
	terminationLag int
}

type fakeInstance struct {
	id      string
	name    string
	state   InstanceState
	private string
	public  string

	failTag bool
	dying   bool
	lag     int
}

var _ Cloud = (*fakeCloud)(nil)

// add seeds a live, addressable instance, as if provisioned by an earlier
// run of the tool.
func (f *fakeCloud) add(name string) *fakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	instance := f.newInstance()
	instance.name = name
	return instance
}

// newInstance creates an instance and applies any pending failure marks.
// Callers must hold f.mu.
func (f *fakeCloud) newInstance() *fakeInstance {
	f.seq++
	instance := &fakeInstance{
		id:      fmt.Sprintf("i-%04d", f.seq),
		state:   InstanceStateRunning,
		private: fmt.Sprintf("10.0.0.%d", f.seq),
		public:  fmt.Sprintf("198.51.100.%d", f.seq),
	}
	if f.failTagNext > 0 {
		f.failTagNext--
		instance.failTag = true
	} else if f.noAddrNext > 0 {
		f.noAddrNext--
		instance.private, instance.public = "", ""
	}
	f.instances = append(f.instances, instance)
	return instance
}

func (f *fakeCloud) find(id string) *fakeInstance {
	for _, instance := range f.instances {
		if instance.id == id {
			return instance
		}
	}
	return nil
}

func (f *fakeCloud) CreateInstances(ctx context.Context, role Role, count int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreates > 0 {
		f.failCreates--
		return nil, errors.New("provider is out of capacity")
	}

	n := count - f.short
	if n < 0 {
		n = 0
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, f.newInstance().id)
	}
	return ids, nil
}

func (f *fakeCloud) TagInstance(ctx context.Context, id string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	instance := f.find(id)
	if instance == nil {
		return fmt.Errorf("no such instance %s", id)
	}
	if instance.failTag {
		return errors.New("label API unavailable")
	}
	instance.name = name
	return nil
}

func (f *fakeCloud) ListInstances(ctx context.Context) ([]Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	instances := make([]Instance, 0, len(f.instances))
	for _, instance := range f.instances {
		if instance.dying {
			if instance.lag <= 0 {
				instance.state = InstanceStateTerminated
				instance.dying = false
			} else {
				instance.lag--
			}
		}
		instances = append(instances, Instance{
			ID:          instance.id,
			Name:        instance.name,
			State:       instance.state,
			PrivateAddr: instance.private,
			PublicAddr:  instance.public,
		})
	}
	return instances, nil
}

func (f *fakeCloud) TerminateInstances(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminateCalls++
	f.terminated = append(f.terminated, ids...)
	for _, id := range ids {
		if instance := f.find(id); instance != nil && !instance.state.Terminal() {
			instance.dying = true
			instance.lag = f.terminationLag
		}
	}
	return nil
}

// liveNames returns the names of instances neither terminated nor on their
// way out, in creation order.
func (f *fakeCloud) liveNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, instance := range f.instances {
		if !instance.state.Terminal() && !instance.dying {
			names = append(names, instance.name)
		}
	}
	return names
}

// fakeBootstrap records every step it is asked to run, in call order, and
// fails the steps it was told to fail.
type fakeBootstrap struct {
	mu    sync.Mutex
	calls []string

	failInstall   map[string]bool
	failConfigure map[string]bool
	failStart     map[string]bool
	failStop      map[string]bool
}

var _ Bootstrap = (*fakeBootstrap)(nil)

func newFakeBootstrap() *fakeBootstrap {
	return &fakeBootstrap{
		failInstall:   map[string]bool{},
		failConfigure: map[string]bool{},
		failStart:     map[string]bool{},
		failStop:      map[string]bool{},
	}
}

func (f *fakeBootstrap) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBootstrap) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBootstrap) Install(ctx context.Context, node Node) error {
	f.record("install " + node.Name)
	if f.failInstall[node.Name] {
		return errors.New("install failed")
	}
	return nil
}

func (f *fakeBootstrap) Configure(ctx context.Context, node Node, coordinator Node) error {
	f.record(fmt.Sprintf("configure %s -> %s", node.Name, coordinator.Name))
	if f.failConfigure[node.Name] {
		return errors.New("configure failed")
	}
	return nil
}

func (f *fakeBootstrap) Start(ctx context.Context, node Node, role Role) error {
	f.record("start " + node.Name)
	if f.failStart[node.Name] {
		return errors.New("start failed")
	}
	return nil
}

func (f *fakeBootstrap) Stop(ctx context.Context, node Node, role Role) error {
	f.record("stop " + node.Name)
	if f.failStop[node.Name] {
		return errors.New("stop failed")
	}
	return nil
}
