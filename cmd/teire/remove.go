package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teire-tools/teire/internal/clean"
	"github.com/teire-tools/teire/internal/hooks"
	"github.com/teire-tools/teire/internal/metrics"
	"github.com/teire-tools/teire/internal/registry"
	"github.com/teire-tools/teire/internal/removal"
	"github.com/teire-tools/teire/internal/repostatus"
)

// RemoveCmd removes packages or whole repository checkouts.
type RemoveCmd struct {
	Items []string `arg:"" optional:"" name:"items" help:"Package names or repository paths to remove."`
	This  bool     `name:"this" help:"Remove the package containing the current directory."`
	Fetch bool     `name:"fetch" help:"Fetch and prune each remote before computing repository status."`
}

// Run executes the remove command.
func (c *RemoveCmd) Run(globals *CLI) error {
	env, err := setup(globals)
	if err != nil {
		return err
	}

	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()

	flags := globalFlags(globals)
	if c.This {
		flags = append(flags, "--this")
	}
	if c.Fetch {
		flags = append(flags, "--fetch")
	}
	_ = ml.LogCommand("remove", flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Load(env.ws.Src())
	if err != nil {
		return fmt.Errorf("loading package registry: %w", err)
	}

	items := c.Items
	if c.This {
		name, err := currentPackage(reg)
		if err != nil {
			return err
		}
		items = append(items, name)
	}

	if globals.DryRun {
		// Resolution and status run read-only; the declined confirmations
		// stop short of every mutation.
		fmt.Println("Dry run: no repository will be removed.")
	}

	engine := removal.NewEngine(
		env.ws,
		reg,
		repostatus.NewAnalyzer(repostatus.RealGitOps{}),
		clean.New(env.ws.Root, env.cfg.ArtifactDirs),
		confirmer(globals),
		os.Stdout,
	)

	outcomes, err := engine.Remove(ctx, items, removal.Options{Refresh: c.Fetch})
	for _, o := range outcomes {
		_ = ml.LogRemoval(metrics.Fingerprint(o.Path), outcomeLabel(o))
	}
	if err != nil {
		return err
	}

	runner := hooks.NewRunner(os.Stdout, env.cfg.HookDirs, []string{"TEIRE_WORKSPACE=" + env.ws.Root})
	return runner.Run(ctx, hooks.PostRemove)
}

// currentPackage resolves the package owning the working directory.
func currentPackage(reg *registry.Registry) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	name, ok := reg.PackageContaining(cwd)
	if !ok {
		return "", fmt.Errorf("current directory is not inside a known package")
	}
	return name, nil
}

func outcomeLabel(o removal.RepoOutcome) string {
	switch o.State {
	case removal.Deleted:
		return "deleted"
	case removal.DeletionFailed:
		return "failed"
	default:
		return "skipped"
	}
}
