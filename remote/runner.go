// Package remote runs commands and copies files on fleet nodes over SSH.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/lakeward/deckhand/internal/retry"
	"golang.org/x/crypto/ssh"
)

type Config struct {
	Logger *slog.Logger

	User    string
	KeyFile string
	// Port of the SSH daemon, 22 when zero.
	Port int

	// DialAttempts and DialInterval bound how long WaitReady spends waiting
	// for a freshly booted node to accept connections.
	DialAttempts int
	DialInterval time.Duration

	// RunAttempts bounds retry-enabled command execution.
	RunAttempts int
}

// RunOptions tweaks a single command execution.
type RunOptions struct {
	// Retry reruns the command on failure, for steps that are safe to
	// repeat. Connection failures count as command failures here.
	Retry bool

	// Env is exported into the remote shell before the command runs. Values
	// travel inside the SSH session instead of landing in a file or in the
	// remote command line, which keeps credentials off the node's disk.
	Env map[string]string
}

// Runner executes commands on nodes over SSH using a single private key.
// Host keys are not verified: nodes are freshly booted cloud instances whose
// keys nobody has seen before.
type Runner struct {
	config Config
	signer ssh.Signer
	log    *slog.Logger
}

func NewRunner(config Config) (*Runner, error) {
	if config.Port == 0 {
		config.Port = 22
	}
	if config.DialAttempts == 0 {
		config.DialAttempts = 8
	}
	if config.DialInterval == 0 {
		config.DialInterval = 5 * time.Second
	}
	if config.RunAttempts == 0 {
		config.RunAttempts = 3
	}

	key, err := os.ReadFile(config.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key '%s': %w", config.KeyFile, err)
	}

	return &Runner{
		config: config,
		signer: signer,
		log:    config.Logger.With("component", "remote"),
	}, nil
}

// Run executes a command on the node at addr and waits for it to finish.
// Output is captured and only surfaces inside the error when the command
// fails.
func (r *Runner) Run(ctx context.Context, addr string, command string, options RunOptions) error {
	attempts := 1
	if options.Retry {
		attempts = r.config.RunAttempts
	}
	command = prependEnv(command, options.Env)

	return retry.Do(ctx, attempts, time.Second, func() error {
		return r.runOnce(addr, command)
	})
}

func (r *Runner) runOnce(addr string, command string) error {
	client, err := r.dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open SSH session on %s: %w", addr, err)
	}
	defer session.Close()

	r.log.Debug("Running remote command", "addr", addr, "command", command)
	if output, err := session.CombinedOutput(command); err != nil {
		return fmt.Errorf("remote command failed on %s: %w: %s", addr, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// WaitReady blocks until the node accepts SSH connections and runs a trivial
// command. Fresh instances need a while between getting an address and
// having a reachable SSH daemon.
func (r *Runner) WaitReady(ctx context.Context, addr string) error {
	r.log.Debug("Waiting for SSH", "addr", addr)
	err := retry.Do(ctx, r.config.DialAttempts, r.config.DialInterval, func() error {
		return r.runOnce(addr, "true")
	})
	if err != nil {
		return fmt.Errorf("node %s never became reachable over SSH: %w", addr, err)
	}
	return nil
}

func (r *Runner) dial(addr string) (*ssh.Client, error) {
	client, err := ssh.Dial("tcp", net.JoinHostPort(addr, strconv.Itoa(r.config.Port)), &ssh.ClientConfig{
		User:            r.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return client, nil
}

// prependEnv turns the env map into sorted, quoted export statements ahead
// of the command, so runs are deterministic and values survive shells.
func prependEnv(command string, env map[string]string) string {
	if len(env) == 0 {
		return command
	}

	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&builder, "export %s=%s; ", key, shellescape.Quote(env[key]))
	}
	builder.WriteString(command)
	return builder.String()
}
