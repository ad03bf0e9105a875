package fleet

import (
	"errors"
	"fmt"
	"strings"
)

// Precondition violations. These mean the operator asked for something the
// fleet's current shape forbids; nothing was provisioned and nothing needs
// cleaning up.
var (
	ErrCoordinatorExists = errors.New("cluster already has a coordinator")
	ErrNoCoordinator     = errors.New("cluster has no coordinator")
)

// ProvisionError reports that the convergence loop ran out of attempts
// before the full target set existed. Nodes realized along the way are left
// running; only the instances that failed mid-round were terminated.
type ProvisionError struct {
	Role     Role
	Missing  []string
	Attempts int
	Err      error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("failed to provision %d %s node(s) after %d attempt(s): missing %s",
		len(e.Missing), e.Role, e.Attempts, strings.Join(e.Missing, ", "))
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// TerminationTimeoutError reports instances the provider kept listing as
// alive after the confirmation budget ran out. The termination request was
// sent; whether it will eventually land is unknown.
type TerminationTimeoutError struct {
	IDs []string
}

func (e *TerminationTimeoutError) Error() string {
	return fmt.Sprintf("instance(s) still listed after termination: %s", strings.Join(e.IDs, ", "))
}

// BootstrapError reports the failure of a single node's bootstrap sequence.
// The node itself was provisioned and is still running unless the teardown
// policy removed the fleet.
type BootstrapError struct {
	Node string
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("failed to bootstrap node '%s': %v", e.Node, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }
