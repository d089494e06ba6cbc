// Package main provides the teire CLI tool for workspace maintenance.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/teire-tools/teire/internal/config"
	"github.com/teire-tools/teire/internal/prompt"
	"github.com/teire-tools/teire/internal/workspace"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI defines the top-level command structure for teire.
type CLI struct {
	Workspace string `name:"workspace" short:"w" help:"Workspace root directory." env:"TEIRE_WORKSPACE"`
	Yes       bool   `name:"yes" short:"y" help:"Answer yes to all confirmations (for scripting)."`
	DryRun    bool   `name:"dry-run" short:"n" help:"Show what would be done without making changes."`
	Verbose   bool   `name:"verbose" short:"v" help:"Verbose output."`

	Sync    SyncCmd    `cmd:"" help:"Fetch and fast-forward every repository, then report stale branches."`
	Remove  RemoveCmd  `cmd:"" help:"Remove packages or repository checkouts, with safety checks."`
	Status  StatusCmd  `cmd:"" help:"Show what would be lost if each repository were removed."`
	Clean   CleanCmd   `cmd:"" help:"Remove build artifacts for packages."`
	Update  UpdateCmd  `cmd:"" help:"Run workspace update hooks (sync plus registered scripts)."`
	Doctor  DoctorCmd  `cmd:"" help:"Run workspace health checks."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// appEnv bundles the pieces every command needs.
type appEnv struct {
	cfg config.Config
	ws  *workspace.Workspace
}

// setup loads configuration and resolves the workspace root. Verbose
// logging is enabled before anything else so config loading is visible.
func setup(globals *CLI) (appEnv, error) {
	if globals.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := config.Load()
	if err != nil {
		return appEnv{}, fmt.Errorf("loading config: %w", err)
	}

	ws, err := workspace.Resolve(config.ExpandHome(globals.Workspace), cfg.WorkspaceDir, cfg.SrcDir)
	if err != nil {
		return appEnv{}, err
	}
	slog.Debug("resolved workspace", "root", ws.Root, "src", ws.Src())

	return appEnv{cfg: cfg, ws: ws}, nil
}

// confirmer returns the Confirmer matching the global flags: --yes
// pre-answers everything, --dry-run declines everything so no offer
// ever mutates state.
func confirmer(globals *CLI) prompt.Confirmer {
	switch {
	case globals.DryRun:
		return prompt.Answered{Answer: false}
	case globals.Yes:
		return prompt.Answered{Answer: true}
	default:
		return prompt.Interactive{}
	}
}

// globalFlags lists the set global flags for metrics.
func globalFlags(globals *CLI) []string {
	var flags []string
	if globals.DryRun {
		flags = append(flags, "--dry-run")
	}
	if globals.Yes {
		flags = append(flags, "--yes")
	}
	if globals.Verbose {
		flags = append(flags, "--verbose")
	}
	return flags
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("teire %s (commit: %s, built: %s)\n", version, commit, date)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("teire"),
		kong.Description(`teire (手入れ) - "upkeep"

A workspace maintenance tool for source checkouts: keeps every
repository under src/ fetched and fast-forwarded, flags branches whose
upstream vanished, and removes checkouts only after showing exactly
what would be lost.`),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)},
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
	// Explicitly exit with 0 on success so tests can verify exit behavior.
	os.Exit(0)
}
