// Package handlers contains the agent's built-in message handlers. Each
// handler reacts to one topic by running an ordered pipeline of steps;
// the steps shell out through the CommandRunner boundary so tests can
// observe orchestration without touching rsync or ssh.
package handlers

import (
	"context"
	"os/exec"

	"github.com/rs/zerolog"
)

// Topics the built-in handlers subscribe to. The PLC publishes to
// push_to_server when a production cycle completes; the order system
// publishes to shop_order_recipes_synced after refreshing recipe files.
const (
	TopicPushToServer = "plc/push_to_server"
	TopicOrdersSynced = "as400/shop_order_recipes_synced"
)

// CommandRunner executes one external command. Implementations own any
// timeout; the pipeline imposes none of its own.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands through os/exec, logging each invocation.
type ExecRunner struct {
	log zerolog.Logger
}

// NewExecRunner creates an ExecRunner logging through log.
func NewExecRunner(log zerolog.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

// Run executes the command and waits for it. Output is captured and
// logged only on failure.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	r.log.Debug().Str("command", name).Strs("args", args).Msg("running command")
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		r.log.Error().Err(err).Str("command", name).Str("output", string(out)).
			Msg("command failed")
		return err
	}
	return nil
}

// Verify that ExecRunner implements the CommandRunner interface at compile time
var _ CommandRunner = (*ExecRunner)(nil)
