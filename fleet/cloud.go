package fleet

import "context"

// Cloud is the provider surface the fleet operates through. Implementations
// translate these calls into provider APIs; absorbing transient failures and
// confirming effects is the caller's concern, so methods should fail fast
// rather than retry internally.
type Cloud interface {
	// CreateInstances requests count fresh instances sized for role and
	// returns the provider ids it could confirm. Providers may under-deliver:
	// a short list is not an error, the convergence loop tops it up.
	CreateInstances(ctx context.Context, role Role, count int) ([]string, error)

	// TagInstance applies a fleet name label to an instance. Labels are the
	// only identity a node has; an unlabeled instance belongs to no cluster.
	TagInstance(ctx context.Context, id string, name string) error

	// ListInstances returns every instance carrying the deployment's access
	// credential tag, including instances in terminal states. Callers filter
	// by state; index allocation deliberately does not.
	ListInstances(ctx context.Context) ([]Instance, error)

	// TerminateInstances requests termination of the given instances.
	// Termination is asynchronous; completion must be confirmed by listing.
	TerminateInstances(ctx context.Context, ids []string) error
}
