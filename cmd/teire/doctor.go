package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/teire-tools/teire/internal/doctor"
	"github.com/teire-tools/teire/internal/github"
	"github.com/teire-tools/teire/internal/hooks"
	"github.com/teire-tools/teire/internal/metrics"
	"github.com/teire-tools/teire/internal/scanner"
)

// DoctorCmd runs workspace health checks.
type DoctorCmd struct {
	Archived bool `name:"archived" help:"Also check GitHub for archived upstream repositories."`
}

// Run executes the doctor command.
func (c *DoctorCmd) Run(globals *CLI) error {
	env, err := setup(globals)
	if err != nil {
		return err
	}

	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()
	_ = ml.LogCommand("doctor", globalFlags(globals))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := hooks.NewRunner(os.Stdout, env.cfg.HookDirs, []string{"TEIRE_WORKSPACE=" + env.ws.Root})
	runner.Register(hooks.Diagnose, hooks.Func{
		HookName: "stray-directories",
		Fn: func(ctx context.Context) error {
			return c.checkStrayDirs(ctx, env)
		},
	})
	if c.Archived {
		runner.Register(hooks.Diagnose, hooks.Func{
			HookName: "archived-upstreams",
			Fn: func(ctx context.Context) error {
				return c.checkArchived(ctx, env)
			},
		})
	}
	return runner.Run(ctx, hooks.Diagnose)
}

// checkStrayDirs reports source-tree directories with no repository in
// them, the usual leftovers of aborted clones and manual copies.
func (c *DoctorCmd) checkStrayDirs(ctx context.Context, env appEnv) error {
	strays, err := doctor.FindStrayDirs(ctx, env.ws.Src(), doctor.Options{
		ExcludePatterns: env.cfg.ExcludePatterns,
	}, env.cfg.Workers)
	if err != nil {
		return err
	}
	if len(strays) == 0 {
		fmt.Println("No stray directories under", env.ws.Rel(env.ws.Src()))
		return nil
	}

	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	fmt.Println(bold.Sprintf("Found %d stray directory(ies) with no repository:", len(strays)))
	for _, s := range strays {
		fmt.Printf("  %s  %s\n", env.ws.Rel(s.Path),
			dim.Sprintf("(%d files, %s, %s)", s.FileCount, formatSize(s.Size), s.Summary))
	}
	return nil
}

// checkArchived flags checkouts whose origin repository was archived on
// GitHub.
func (c *DoctorCmd) checkArchived(ctx context.Context, env appEnv) error {
	repos, err := scanner.Scan(env.ws.Src(), scanner.Options{
		ExcludePatterns: env.cfg.ExcludePatterns,
	})
	if err != nil {
		return err
	}

	client := github.NewClient(env.cfg.GithubToken)
	archived := doctor.FindArchivedRepos(ctx, repos, client, env.cfg.Workers)
	if len(archived) == 0 {
		fmt.Println("No archived upstream repositories.")
		return nil
	}

	bold := color.New(color.Bold)
	fmt.Println(bold.Sprintf("Found %d checkout(s) with archived upstreams:", len(archived)))
	for _, a := range archived {
		fmt.Printf("  %s  (%s/%s)\n", env.ws.Rel(a.Path), a.Owner, a.Repo)
	}
	return nil
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
