package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeNames(t *testing.T) {
	assert.Equal(t, "crunch-master", CoordinatorName("crunch"))
	assert.Equal(t, "crunch-worker-1", WorkerName("crunch", 1))
	assert.Equal(t, "crunch-worker-12", WorkerName("crunch", 12))
}

func TestParseWorkerIndex(t *testing.T) {
	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{"crunch-worker-1", 1, true},
		{"crunch-worker-42", 42, true},
		{"crunch-master", 0, false},
		{"crunch-worker-0", 0, false},
		{"crunch-worker--1", 0, false},
		{"crunch-worker-x", 0, false},
		{"crunch-worker-", 0, false},
		{"other-worker-3", 0, false},
		{"crunch", 0, false},
	}
	for _, test := range tests {
		index, ok := ParseWorkerIndex("crunch", test.name)
		assert.Equal(t, test.ok, ok, "name %q", test.name)
		assert.Equal(t, test.index, index, "name %q", test.name)
	}
}

func TestInstanceStateTerminal(t *testing.T) {
	assert.True(t, InstanceStateTerminated.Terminal())
	assert.False(t, InstanceStateRunning.Terminal())
	assert.False(t, InstanceStateBuilding.Terminal())
	assert.False(t, InstanceStateUnknown.Terminal())
}
