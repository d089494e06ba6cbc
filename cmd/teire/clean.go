package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/teire-tools/teire/internal/clean"
	"github.com/teire-tools/teire/internal/hooks"
	"github.com/teire-tools/teire/internal/metrics"
	"github.com/teire-tools/teire/internal/registry"
)

// CleanCmd removes build artifacts for packages without touching source.
type CleanCmd struct {
	Packages []string `arg:"" optional:"" name:"packages" help:"Package names to clean. Cleans everything when omitted."`
	This     bool     `name:"this" help:"Clean the package containing the current directory."`
	Logs     bool     `name:"logs" help:"Also remove the workspace log directory."`
}

// Run executes the clean command.
func (c *CleanCmd) Run(globals *CLI) error {
	env, err := setup(globals)
	if err != nil {
		return err
	}

	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()
	_ = ml.LogCommand("clean", globalFlags(globals))

	reg, err := registry.Load(env.ws.Src())
	if err != nil {
		return fmt.Errorf("loading package registry: %w", err)
	}

	names := c.Packages
	if c.This {
		name, err := currentPackage(reg)
		if err != nil {
			return err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		names = reg.Names()
	}

	var unknown []string
	for _, name := range names {
		if _, ok := reg.PackagePath(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown packages: %s", strings.Join(unknown, ", "))
	}

	if globals.DryRun {
		fmt.Printf("Would clean build artifacts for %d package(s).\n", len(names))
		return nil
	}

	cleaner := clean.New(env.ws.Root, env.cfg.ArtifactDirs)
	if err := cleaner.CleanPackages(names); err != nil {
		return err
	}
	fmt.Printf("Cleaned build artifacts for %d package(s).\n", len(names))

	if c.Logs {
		if err := cleaner.CleanLogs(); err != nil {
			return err
		}
		fmt.Println("Removed workspace logs.")
	}

	runner := hooks.NewRunner(os.Stdout, env.cfg.HookDirs, []string{"TEIRE_WORKSPACE=" + env.ws.Root})
	return runner.Run(context.Background(), hooks.PostClean)
}
