package remote

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrependEnvLeavesCommandsWithoutEnvAlone(t *testing.T) {
	assert.Equal(t, "uptime", prependEnv("uptime", nil))
	assert.Equal(t, "uptime", prependEnv("uptime", map[string]string{}))
}

func TestPrependEnvExportsSortedAndQuoted(t *testing.T) {
	command := prependEnv("run-job", map[string]string{
		"B_TOKEN": "se cret",
		"A_KEY":   "plain",
	})

	assert.Equal(t, `export A_KEY=plain; export B_TOKEN='se cret'; run-job`, command)
}

func TestNewRunnerRejectsMissingKey(t *testing.T) {
	_, err := NewRunner(Config{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		User:    "ubuntu",
		KeyFile: filepath.Join(t.TempDir(), "no-such-key"),
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to read SSH key")
}

func TestNewRunnerRejectsGarbageKey(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0o600))

	_, err := NewRunner(Config{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		User:    "ubuntu",
		KeyFile: keyFile,
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to parse SSH key")
}
