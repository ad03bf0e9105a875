package fleet

import "context"

// Bootstrap turns a bare instance into a working cluster member. The
// orchestrator sequences these steps; implementations own transport,
// idempotency, and per-step retries.
type Bootstrap interface {
	// Install puts the engine runtime onto the node.
	Install(ctx context.Context, node Node) error

	// Configure writes the node's cluster environment, pointing it at the
	// given coordinator. The coordinator configures itself: both arguments
	// are the same node then.
	Configure(ctx context.Context, node Node, coordinator Node) error

	// Start launches the engine service matching the node's role.
	Start(ctx context.Context, node Node, role Role) error

	// Stop halts the engine service matching the node's role. Stopping a
	// service that is not running must not be an error.
	Stop(ctx context.Context, node Node, role Role) error
}
