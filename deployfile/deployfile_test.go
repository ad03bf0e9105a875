package deployfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDeployfile = `
version: "1"
cluster: crunch
provider: openstack
image: debian-12
ssh:
  user: debian
  key-file: ~/.ssh/crunch
  key-pair: crunch-ops
network:
  internal: true
  networks: [ext-net-1]
  security-groups: [crunch-nodes]
coordinator:
  flavor: a2-ram4
workers:
  flavor: a4-ram8
  disk-gb: 100
engine:
  artifact: https://releases.example.com/engine-2.4.1.tgz
  env:
    ENGINE_MEMORY: 6g
provisioning:
  poll-interval: 5s
`

func write(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "deckhand.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestReadAcceptsAValidFile(t *testing.T) {
	deployfile, err := Read(write(t, validDeployfile))

	require.NoError(t, err)
	assert.Equal(t, "crunch", deployfile.Cluster)
	assert.Equal(t, "openstack", deployfile.Provider)
	assert.True(t, deployfile.Network.Internal)
	assert.Equal(t, []string{"ext-net-1"}, deployfile.Network.Networks)
	assert.Equal(t, 100, deployfile.Workers.DiskGB)
	assert.Equal(t, "6g", deployfile.Engine.Env["ENGINE_MEMORY"])
	assert.Equal(t, 5*time.Second, deployfile.PollInterval())
}

func TestReadAppliesDefaults(t *testing.T) {
	deployfile, err := Read(write(t, validDeployfile))

	require.NoError(t, err)
	assert.Equal(t, 22, deployfile.SSH.Port)
	assert.Equal(t, 3, deployfile.Provisioning.Attempts)
	assert.Equal(t, 10, deployfile.Provisioning.PollAttempts)
	assert.Equal(t, 8, deployfile.Provisioning.BootstrapConcurrency)
	assert.False(t, deployfile.Provisioning.TeardownOnFailure)
}

func TestReadRejectsUnknownFields(t *testing.T) {
	_, err := Read(write(t, validDeployfile+"\ntypo-field: oops\n"))

	require.Error(t, err)
	var unmarshalErr UnmarshalError
	assert.ErrorAs(t, err, &unmarshalErr)
}

func TestValidateCatchesBrokenFiles(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Deployfile)
		message string
	}{
		{"wrong version", func(d *Deployfile) { d.Version = "9" }, "unsupported version"},
		{"bad cluster name", func(d *Deployfile) { d.Cluster = "Big Cluster" }, "cluster"},
		{"unknown provider", func(d *Deployfile) { d.Provider = "aws" }, "provider"},
		{"missing image", func(d *Deployfile) { d.Image = "" }, "image is required"},
		{"missing ssh user", func(d *Deployfile) { d.SSH.User = "" }, "ssh.user"},
		{"missing key file", func(d *Deployfile) { d.SSH.KeyFile = "" }, "ssh.key-file"},
		{"missing key pair", func(d *Deployfile) { d.SSH.KeyPair = "" }, "ssh.key-pair"},
		{"missing coordinator flavor", func(d *Deployfile) { d.Coordinator.Flavor = "" }, "coordinator.flavor"},
		{"missing workers flavor", func(d *Deployfile) { d.Workers.Flavor = "" }, "workers.flavor"},
		{"missing artifact", func(d *Deployfile) { d.Engine.Artifact = "" }, "engine.artifact"},
		{"non-http artifact", func(d *Deployfile) { d.Engine.Artifact = "ftp://x/y.tgz" }, "engine.artifact"},
		{"bad env key", func(d *Deployfile) { d.Engine.Env = map[string]string{"lower": "x"} }, "engine.env"},
		{"negative attempts", func(d *Deployfile) { d.Provisioning.Attempts = -1 }, "provisioning.attempts"},
		{"bad poll interval", func(d *Deployfile) { d.Provisioning.PollInterval = "soon" }, "poll-interval"},
	}

	for _, test := range tests {
		deployfile, err := Read(write(t, validDeployfile))
		require.NoError(t, err, test.name)

		test.mutate(deployfile)
		err = deployfile.Validate()
		require.Error(t, err, test.name)
		assert.ErrorContains(t, err, test.message, test.name)
	}
}
