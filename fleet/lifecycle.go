package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lakeward/deckhand/internal/retry"
	"github.com/samber/lo"
)

// Name labels are applied right after creation; failures here are almost
// always transient API hiccups, so a short retry is enough.
const (
	tagAttempts   = 3
	tagRetryDelay = time.Second
)

var errStillListed = errors.New("instances still listed")

// Manager converges the provider's inventory toward a named target set and
// removes instances with termination confirmation. It trusts no write:
// every mutation is verified through a subsequent directory read before it
// counts.
type Manager struct {
	cloud     Cloud
	directory *Directory
	config    Config
	log       *slog.Logger
}

func NewManager(cloud Cloud, directory *Directory, config Config) *Manager {
	return &Manager{
		cloud:     cloud,
		directory: directory,
		config:    config,
		log:       config.Logger.With("component", "lifecycle"),
	}
}

// EnsureNodes brings instances bearing the given name labels into existence
// and returns them with resolved addresses. Names already held by live,
// addressable instances are accepted as-is, which makes the call idempotent:
// a fully satisfied target set triggers no provider write at all.
//
// Convergence runs in bounded rounds. Each round batch-creates the current
// deficit, labels every fresh instance, and waits for it to reappear in the
// directory with an address. Instances that fail half-way are terminated
// before the next round so they never linger unlabeled, and successes carry
// over, so the deficit only shrinks. When the attempt budget runs out the
// call fails with *ProvisionError; nodes realized before that stay running.
func (m *Manager) EnsureNodes(ctx context.Context, role Role, names []string) ([]Node, error) {
	accepted, err := m.existing(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(accepted) > 0 {
		m.log.Debug("Reusing existing nodes", "role", role, "count", len(accepted))
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		deficit := missingNames(names, accepted)
		if len(deficit) == 0 {
			return accepted, nil
		}
		if attempt > m.config.ProvisionAttempts {
			return nil, &ProvisionError{
				Role:     role,
				Missing:  deficit,
				Attempts: m.config.ProvisionAttempts,
				Err:      lastErr,
			}
		}

		m.log.Info("Creating instances", "role", role, "count", len(deficit), "attempt", attempt)
		ids, err := m.cloud.CreateInstances(ctx, role, len(deficit))
		if err != nil {
			m.log.Warn("Failed to create instances", "role", role, "error", err)
			lastErr = err
			continue
		}
		if len(ids) < len(deficit) {
			m.log.Warn("Provider under-delivered", "requested", len(deficit), "created", len(ids))
		}

		var failed []string
		for i, id := range ids {
			// Anything beyond the deficit has no name to receive.
			if i >= len(deficit) {
				failed = append(failed, id)
				continue
			}
			node, err := m.realize(ctx, id, deficit[i])
			if err != nil {
				m.log.Warn("Instance failed to realize", "id", id, "name", deficit[i], "error", err)
				lastErr = err
				failed = append(failed, id)
				continue
			}
			m.log.Info("Node ready", "name", node.Name, "id", node.ID, "addr", node.Addr)
			accepted = append(accepted, node)
		}

		if len(failed) > 0 {
			m.log.Info("Terminating unusable instances", "ids", failed)
			if err := m.RemoveNodes(ctx, failed); err != nil {
				return nil, fmt.Errorf("failed to clean up unusable instances: %w", err)
			}
		}
	}
}

// existing seeds the accepted set with live instances that already hold one
// of the target names and have an address.
func (m *Manager) existing(ctx context.Context, names []string) ([]Node, error) {
	nodes, err := m.directory.List(ctx)
	if err != nil {
		return nil, err
	}

	wanted := lo.SliceToMap(names, func(name string) (string, bool) { return name, true })
	return lo.Filter(nodes, func(node Node, _ int) bool {
		return wanted[node.Name] && node.Addr != ""
	}), nil
}

func missingNames(names []string, accepted []Node) []string {
	have := lo.SliceToMap(accepted, func(node Node) (string, bool) { return node.Name, true })
	return lo.Filter(names, func(name string, _ int) bool { return !have[name] })
}

// realize labels a fresh instance and waits for the directory to report it
// live and addressable under that label.
func (m *Manager) realize(ctx context.Context, id, name string) (Node, error) {
	err := retry.Do(ctx, tagAttempts, tagRetryDelay, func() error {
		return m.cloud.TagInstance(ctx, id, name)
	})
	if err != nil {
		return Node{}, fmt.Errorf("failed to label instance %s as '%s': %w", id, name, err)
	}

	node, err := retry.DoResult(ctx, m.config.PollAttempts, m.config.PollInterval, func() (Node, error) {
		nodes, err := m.directory.List(ctx)
		if err != nil {
			return Node{}, err
		}
		for _, node := range nodes {
			if node.ID == id && node.Name == name && node.Addr != "" {
				return node, nil
			}
		}
		return Node{}, fmt.Errorf("instance %s has no address yet", id)
	})
	if err != nil {
		return Node{}, fmt.Errorf("failed waiting for '%s' to become addressable: %w", name, err)
	}
	return node, nil
}

// RemoveNodes terminates the given instances and blocks until the provider
// stops listing every one of them as alive. Ids that are already gone are
// skipped, so removing the same nodes twice is harmless. Instances that
// outlive the confirmation budget surface as *TerminationTimeoutError.
func (m *Manager) RemoveNodes(ctx context.Context, ids []string) error {
	nodes, err := m.directory.List(ctx)
	if err != nil {
		return err
	}
	present := lo.Filter(ids, func(id string, _ int) bool {
		return lo.ContainsBy(nodes, func(node Node) bool { return node.ID == id })
	})
	if len(present) == 0 {
		return nil
	}

	m.log.Info("Terminating instances", "ids", present)
	if err := m.cloud.TerminateInstances(ctx, present); err != nil {
		return fmt.Errorf("failed to terminate instances: %w", err)
	}

	var remaining []string
	err = retry.Do(ctx, m.config.PollAttempts, m.config.PollInterval, func() error {
		nodes, err := m.directory.List(ctx)
		if err != nil {
			return err
		}
		remaining = lo.Filter(present, func(id string, _ int) bool {
			return lo.ContainsBy(nodes, func(node Node) bool { return node.ID == id })
		})
		if len(remaining) > 0 {
			return errStillListed
		}
		return nil
	})
	if errors.Is(err, errStillListed) {
		return &TerminationTimeoutError{IDs: remaining}
	}
	if err != nil {
		return fmt.Errorf("failed to confirm termination: %w", err)
	}

	m.log.Info("Instances terminated", "ids", present)
	return nil
}
