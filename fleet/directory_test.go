package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDropsTerminalInstances(t *testing.T) {
	cloud := &fakeCloud{}
	cloud.add("crunch-master")
	gone := cloud.add("crunch-worker-1")
	gone.state = InstanceStateTerminated
	directory := NewDirectory(cloud, testConfig())

	nodes, err := directory.List(context.Background())

	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "crunch-master", nodes[0].Name)
}

func TestListResolvesThePublicAddressByDefault(t *testing.T) {
	cloud := &fakeCloud{}
	instance := cloud.add("crunch-master")
	directory := NewDirectory(cloud, testConfig())

	nodes, err := directory.List(context.Background())

	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, instance.public, nodes[0].Addr)
}

func TestListResolvesThePrivateAddressWhenInternal(t *testing.T) {
	config := testConfig()
	config.InternalAddr = true
	cloud := &fakeCloud{}
	instance := cloud.add("crunch-master")
	directory := NewDirectory(cloud, config)

	nodes, err := directory.List(context.Background())

	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, instance.private, nodes[0].Addr)
}

func TestListKeepsUnaddressableInstancesWithEmptyAddr(t *testing.T) {
	cloud := &fakeCloud{noAddrNext: 1}
	cloud.add("crunch-worker-1")
	directory := NewDirectory(cloud, testConfig())

	nodes, err := directory.List(context.Background())

	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Empty(t, nodes[0].Addr)
}

func TestInstancesIncludeTerminalStates(t *testing.T) {
	cloud := &fakeCloud{}
	cloud.add("crunch-master")
	gone := cloud.add("crunch-worker-1")
	gone.state = InstanceStateTerminated
	directory := NewDirectory(cloud, testConfig())

	instances, err := directory.Instances(context.Background())

	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, InstanceStateTerminated, instances[1].State)
}

func TestNextWorkerIndexStartsAtOne(t *testing.T) {
	cloud := &fakeCloud{}
	cloud.add("crunch-master")
	directory := NewDirectory(cloud, testConfig())

	next, err := directory.NextWorkerIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestNextWorkerIndexCountsTerminatedWorkers(t *testing.T) {
	cloud := &fakeCloud{}
	cloud.add("crunch-worker-1")
	gone := cloud.add("crunch-worker-7")
	gone.state = InstanceStateTerminated
	directory := NewDirectory(cloud, testConfig())

	next, err := directory.NextWorkerIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 8, next, "terminated workers still pin their indices")
}

func TestNextWorkerIndexIgnoresForeignClusters(t *testing.T) {
	cloud := &fakeCloud{}
	cloud.add("other-worker-9")
	cloud.add("crunch-worker-2")
	directory := NewDirectory(cloud, testConfig())

	next, err := directory.NextWorkerIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, next)
}
