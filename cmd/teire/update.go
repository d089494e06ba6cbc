package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/teire-tools/teire/internal/hooks"
	"github.com/teire-tools/teire/internal/metrics"
)

// UpdateCmd runs the update extension point: the built-in workspace
// sync followed by any update scripts registered in the hook dirs.
type UpdateCmd struct{}

// Run executes the update command.
func (c *UpdateCmd) Run(globals *CLI) error {
	env, err := setup(globals)
	if err != nil {
		return err
	}

	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()
	_ = ml.LogCommand("update", globalFlags(globals))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := hooks.NewRunner(os.Stdout, env.cfg.HookDirs, []string{"TEIRE_WORKSPACE=" + env.ws.Root})
	runner.Register(hooks.Update, hooks.Func{
		HookName: "workspace-sync",
		Fn: func(ctx context.Context) error {
			sync := SyncCmd{}
			return sync.Run(globals)
		},
	})
	return runner.Run(ctx, hooks.Update)
}
