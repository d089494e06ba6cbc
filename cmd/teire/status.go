package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"

	"github.com/teire-tools/teire/internal/metrics"
	"github.com/teire-tools/teire/internal/parallel"
	"github.com/teire-tools/teire/internal/repostatus"
	"github.com/teire-tools/teire/internal/scanner"
)

// StatusCmd reports, per repository, what removal would lose.
type StatusCmd struct {
	Fetch bool `name:"fetch" help:"Fetch and prune each remote before computing repository status."`
	All   bool `name:"all" short:"a" help:"Show clean repositories too."`
}

// Run executes the status command.
func (c *StatusCmd) Run(globals *CLI) error {
	env, err := setup(globals)
	if err != nil {
		return err
	}

	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()
	_ = ml.LogCommand("status", globalFlags(globals))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := scanner.Scan(env.ws.Src(), scanner.Options{
		ExcludePatterns: env.cfg.ExcludePatterns,
	})
	if err != nil {
		return fmt.Errorf("scanning repositories: %w", err)
	}
	if len(repos) == 0 {
		fmt.Println("No repositories found.")
		return nil
	}

	analyzer := repostatus.NewAnalyzer(repostatus.RealGitOps{})
	statuses := parallel.Run(ctx, repos, env.cfg.Workers, func(ctx context.Context, repoPath string) repostatus.RepoStatus {
		return analyzer.Analyze(ctx, repoPath, c.Fetch)
	}, nil)
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Path < statuses[j].Path })

	dirty := 0
	for _, s := range statuses {
		if s.IsClean() && !c.All {
			continue
		}
		if !s.IsClean() {
			dirty++
		}
		repostatus.Render(os.Stdout, env.ws.Rel(s.Path), s)
	}

	bold := color.New(color.Bold)
	if dirty == 0 {
		fmt.Println(bold.Sprintf("All %d repositories are clean.", len(statuses)))
	} else {
		fmt.Println(bold.Sprintf("%d of %d repositories have local state that removal would lose.", dirty, len(statuses)))
	}
	return nil
}
