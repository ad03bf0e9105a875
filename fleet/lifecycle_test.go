package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workerNames(count int) []string {
	names := make([]string, count)
	for i := range names {
		names[i] = WorkerName("crunch", i+1)
	}
	return names
}

func TestEnsureNodesIsIdempotent(t *testing.T) {
	cloud := &fakeCloud{}
	cloud.add("crunch-master")
	manager := newTestManager(cloud, testConfig())

	nodes, err := manager.EnsureNodes(context.Background(), RoleCoordinator, []string{"crunch-master"})

	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "crunch-master", nodes[0].Name)
	assert.NotEmpty(t, nodes[0].Addr)
	assert.Zero(t, cloud.createCalls, "a satisfied target set must not create instances")
}

func TestEnsureNodesCreatesAndLabelsMissingNodes(t *testing.T) {
	cloud := &fakeCloud{}
	manager := newTestManager(cloud, testConfig())

	nodes, err := manager.EnsureNodes(context.Background(), RoleWorker, workerNames(3))

	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for i, node := range nodes {
		assert.Equal(t, WorkerName("crunch", i+1), node.Name)
		assert.NotEmpty(t, node.Addr)
	}
	assert.Equal(t, 1, cloud.createCalls)
}

func TestEnsureNodesTopsUpFailedInstances(t *testing.T) {
	cloud := &fakeCloud{
		failTagNext: 1,
		noAddrNext:  1,
	}
	manager := newTestManager(cloud, testConfig())

	nodes, err := manager.EnsureNodes(context.Background(), RoleWorker, workerNames(3))

	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, 2, cloud.createCalls, "the second round should only top up the deficit")
	assert.Len(t, cloud.terminated, 2, "both half-created instances must be terminated")
	assert.ElementsMatch(t, workerNames(3), cloud.liveNames())
}

func TestEnsureNodesFailsOnceAttemptsAreExhausted(t *testing.T) {
	cloud := &fakeCloud{short: 1}
	manager := newTestManager(cloud, testConfig())

	_, err := manager.EnsureNodes(context.Background(), RoleWorker, workerNames(3))

	var provisionErr *ProvisionError
	require.ErrorAs(t, err, &provisionErr)
	assert.Equal(t, RoleWorker, provisionErr.Role)
	assert.Equal(t, []string{"crunch-worker-3"}, provisionErr.Missing)
	assert.Equal(t, 3, provisionErr.Attempts)
	assert.Equal(t, 3, cloud.createCalls)
	assert.ElementsMatch(t, workerNames(2), cloud.liveNames(), "realized nodes must stay alive")
}

func TestEnsureNodesSurvivesCreateFailures(t *testing.T) {
	cloud := &fakeCloud{failCreates: 1}
	manager := newTestManager(cloud, testConfig())

	nodes, err := manager.EnsureNodes(context.Background(), RoleWorker, workerNames(2))

	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Equal(t, 2, cloud.createCalls)
}

func TestEnsureNodesReportsLastCauseOnExhaustion(t *testing.T) {
	cloud := &fakeCloud{failCreates: 10}
	manager := newTestManager(cloud, testConfig())

	_, err := manager.EnsureNodes(context.Background(), RoleWorker, workerNames(1))

	var provisionErr *ProvisionError
	require.ErrorAs(t, err, &provisionErr)
	require.Error(t, provisionErr.Err)
	assert.ErrorContains(t, err, "out of capacity")
}

func TestRemoveNodesIgnoresUnknownIds(t *testing.T) {
	cloud := &fakeCloud{}
	manager := newTestManager(cloud, testConfig())

	err := manager.RemoveNodes(context.Background(), []string{"i-gone"})

	require.NoError(t, err)
	assert.Zero(t, cloud.terminateCalls, "already-gone instances need no provider call")
}

func TestRemoveNodesWaitsForTerminationToLand(t *testing.T) {
	cloud := &fakeCloud{terminationLag: 2}
	first := cloud.add("crunch-worker-1")
	second := cloud.add("crunch-worker-2")
	manager := newTestManager(cloud, testConfig())

	err := manager.RemoveNodes(context.Background(), []string{first.id, second.id})

	require.NoError(t, err)
	assert.Equal(t, 1, cloud.terminateCalls)
	assert.Equal(t, InstanceStateTerminated, first.state)
	assert.Equal(t, InstanceStateTerminated, second.state)
}

func TestRemoveNodesTimesOutOnLingeringInstances(t *testing.T) {
	config := testConfig()
	config.PollAttempts = 2
	cloud := &fakeCloud{terminationLag: 100}
	instance := cloud.add("crunch-worker-1")
	manager := newTestManager(cloud, config)

	err := manager.RemoveNodes(context.Background(), []string{instance.id})

	var timeoutErr *TerminationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, []string{instance.id}, timeoutErr.IDs)
}

func TestRemoveNodesPropagatesContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cloud := &fakeCloud{terminationLag: 100}
	instance := cloud.add("crunch-worker-1")
	manager := newTestManager(cloud, testConfig())

	err := manager.RemoveNodes(ctx, []string{instance.id})

	require.ErrorIs(t, err, context.Canceled)
}
