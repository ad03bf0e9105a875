// Package engine installs, configures, and drives the data processing
// runtime on fleet nodes. Everything happens over the remote runner; the
// engine itself never talks to the cloud provider.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/lakeward/deckhand/fleet"
	"github.com/lakeward/deckhand/remote"
	"github.com/samber/lo"
)

// Runner is the remote execution surface the engine needs. *remote.Runner
// implements it; tests substitute a recorder.
type Runner interface {
	WaitReady(ctx context.Context, addr string) error
	Run(ctx context.Context, addr string, command string, options remote.RunOptions) error
	Put(ctx context.Context, addr string, content []byte, remotePath string) error
	Upload(ctx context.Context, addr string, localPath string, remotePath string) error
}

type Engine struct {
	config Config
	runner Runner
	log    *slog.Logger
}

// Engine implements fleet.Bootstrap
var _ fleet.Bootstrap = (*Engine)(nil)

func New(config Config, runner Runner) *Engine {
	config = config.withDefaults()
	return &Engine{
		config: config,
		runner: runner,
		log:    config.Logger.With("component", "engine"),
	}
}

// Install downloads the engine artifact and unpacks it into the install dir.
// A stamp file records which artifact a node holds, so reinstalling the same
// version is a no-op and the whole step stays safe to retry.
func (e *Engine) Install(ctx context.Context, node fleet.Node) error {
	if err := e.runner.WaitReady(ctx, node.Addr); err != nil {
		return err
	}

	dir := shellescape.Quote(e.config.InstallDir)
	url := shellescape.Quote(e.config.ArtifactURL)
	stamp := shellescape.Quote(path.Join(e.config.InstallDir, ".artifact"))
	script := strings.Join([]string{
		fmt.Sprintf("if [ -f %s ] && grep -qxF %s %s; then exit 0; fi", stamp, url, stamp),
		fmt.Sprintf("sudo mkdir -p %s", dir),
		fmt.Sprintf(`sudo chown "$(id -un):$(id -gn)" %s`, dir),
		fmt.Sprintf("curl -fsSL %s | tar -xz --strip-components=1 -C %s", url, dir),
		fmt.Sprintf("printf '%%s\\n' %s > %s", url, stamp),
	}, " && ")

	e.log.Info("Installing engine", "node", node.Name, "artifact", e.config.ArtifactURL)
	if err := e.runner.Run(ctx, node.Addr, script, remote.RunOptions{Retry: true}); err != nil {
		return fmt.Errorf("failed to install engine on '%s': %w", node.Name, err)
	}
	return nil
}

// Configure renders the cluster environment file and puts it on the node.
// Every service script sources this file, so rewriting it and bouncing the
// services is how cluster-wide settings change.
func (e *Engine) Configure(ctx context.Context, node fleet.Node, coordinator fleet.Node) error {
	content, err := e.renderEnv(node, coordinator)
	if err != nil {
		return err
	}

	e.log.Info("Configuring node", "node", node.Name, "coordinator", coordinator.Addr)
	if err := e.runner.Put(ctx, node.Addr, content, e.envFilePath()); err != nil {
		return fmt.Errorf("failed to configure '%s': %w", node.Name, err)
	}
	return nil
}

// Start launches the engine service matching the node's role. Workers are
// handed the coordinator URL from the environment file.
func (e *Engine) Start(ctx context.Context, node fleet.Node, role fleet.Role) error {
	script := lo.Ternary(role == fleet.RoleCoordinator, e.config.StartCoordinator, e.config.StartWorker)
	command := e.serviceCommand(script)
	if role == fleet.RoleWorker {
		command += ` "$COORDINATOR_URL"`
	}

	e.log.Info("Starting service", "node", node.Name, "role", role)
	if err := e.runner.Run(ctx, node.Addr, command, remote.RunOptions{}); err != nil {
		return fmt.Errorf("failed to start %s on '%s': %w", role, node.Name, err)
	}
	return nil
}

// Stop halts the engine service matching the node's role. Stop scripts treat
// a stopped service as success, which keeps the step retryable.
func (e *Engine) Stop(ctx context.Context, node fleet.Node, role fleet.Role) error {
	script := lo.Ternary(role == fleet.RoleCoordinator, e.config.StopCoordinator, e.config.StopWorker)

	e.log.Info("Stopping service", "node", node.Name, "role", role)
	if err := e.runner.Run(ctx, node.Addr, e.serviceCommand(script), remote.RunOptions{Retry: true}); err != nil {
		return fmt.Errorf("failed to stop %s on '%s': %w", role, node.Name, err)
	}
	return nil
}

// Submit uploads a job artifact to the coordinator and hands it to the
// engine's submit command. Extra environment variables travel inside the SSH
// session, not in files or command lines.
func (e *Engine) Submit(ctx context.Context, coordinator fleet.Node, artifact string, args []string, env map[string]string) error {
	remotePath := path.Join(e.config.InstallDir, "jobs", filepath.Base(artifact))
	e.log.Info("Uploading job artifact", "artifact", artifact, "to", remotePath)
	if err := e.runner.Upload(ctx, coordinator.Addr, artifact, remotePath); err != nil {
		return fmt.Errorf("failed to upload job artifact: %w", err)
	}

	command := fmt.Sprintf("%s %s", e.serviceCommand(e.config.SubmitCommand), shellescape.Quote(remotePath))
	for _, arg := range args {
		command += " " + shellescape.Quote(arg)
	}

	e.log.Info("Submitting job", "coordinator", coordinator.Name)
	if err := e.runner.Run(ctx, coordinator.Addr, command, remote.RunOptions{Env: env}); err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	return nil
}

// serviceCommand builds a shell command that sources the cluster environment
// and runs the given script.
func (e *Engine) serviceCommand(script string) string {
	return fmt.Sprintf(". %s && %s", shellescape.Quote(e.envFilePath()), shellescape.Quote(e.scriptPath(script)))
}

func (e *Engine) scriptPath(script string) string {
	if path.IsAbs(script) {
		return script
	}
	return path.Join(e.config.InstallDir, script)
}

func (e *Engine) envFilePath() string {
	return e.scriptPath(e.config.EnvFile)
}
