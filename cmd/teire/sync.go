package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/teire-tools/teire/internal/github"
	"github.com/teire-tools/teire/internal/hooks"
	"github.com/teire-tools/teire/internal/merge"
	"github.com/teire-tools/teire/internal/metrics"
	"github.com/teire-tools/teire/internal/scanner"
	"github.com/teire-tools/teire/internal/stale"
	"github.com/teire-tools/teire/internal/syncer"
)

// SyncCmd handles repository synchronization.
type SyncCmd struct {
	Pattern string `name:"pattern" short:"f" help:"Filter repositories by name pattern (glob)." default:""`
}

// Run executes the sync command.
func (c *SyncCmd) Run(globals *CLI) error {
	env, err := setup(globals)
	if err != nil {
		return err
	}

	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()

	flags := globalFlags(globals)
	if c.Pattern != "" {
		flags = append(flags, fmt.Sprintf("--pattern=%s", c.Pattern))
	}
	_ = ml.LogCommand("sync", flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning %s for repositories...\n", env.ws.Src())

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
	if c.Pattern != "" {
		repos = filterByPattern(repos, c.Pattern)
		if len(repos) == 0 {
			fmt.Printf("No repositories matching %q found.\n", c.Pattern)
			return nil
		}
	}

	slog.Debug("found repositories", "count", len(repos))

	var prover stale.MergeProver
	if env.cfg.CheckMergedPRs {
		prover = merge.NewProver(merge.RealResolver{}, github.NewClient(env.cfg.GithubToken))
	}
	analyzer := stale.NewAnalyzer(syncer.RealGitOps{}, prover, env.cfg.DefaultBranch)
	s := syncer.New(syncer.RealGitOps{}, analyzer, env.cfg.Workers)

	fmt.Printf("Syncing %d repositories (%d workers)...\n", len(repos), env.cfg.Workers)

	start := time.Now()
	results := s.Run(ctx, repos, func(completed, total int, _ syncer.Result) {
		fmt.Printf("\r\033[2K%s", progressBar(completed, total, time.Since(start)))
	})
	fmt.Print("\r\033[2K\n")

	if err := ctx.Err(); err != nil {
		fmt.Println("Interrupted; reporting completed repositories only.")
	}

	reporter := syncer.NewReporter(os.Stdout, env.ws.Src(), syncer.RealGitOps{}, confirmer(globals))
	ok := reporter.Report(results)

	logSyncMetrics(ml, results, time.Since(start))

	runner := hooks.NewRunner(os.Stdout, env.cfg.HookDirs, []string{"TEIRE_WORKSPACE=" + env.ws.Root})
	if err := runner.Run(ctx, hooks.PostSync); err != nil {
		ok = false
	}

	if !ok {
		return fmt.Errorf("synchronization completed with failures")
	}
	return nil
}

// progressBar renders a single-line indicator such as
// "[====>     ] 42% 5/12 | 8s".
func progressBar(completed, total int, elapsed time.Duration) string {
	const width = 10
	filled := 0
	if total > 0 {
		filled = completed * width / total
	}
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">" + strings.Repeat(" ", width-filled-1)
	}
	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}
	dim := color.New(color.FgHiBlack)
	return fmt.Sprintf("[%s] %d%% %d/%d %s", bar, percent, completed, total,
		dim.Sprintf("| %ds", int(elapsed.Seconds())))
}

func logSyncMetrics(ml *metrics.Logger, results []syncer.Result, elapsed time.Duration) {
	var fetchFailures, pullFailures, staleBranches int
	for _, r := range results {
		if !r.FetchOK {
			fetchFailures++
		}
		if r.PullAttempted && !r.PullOK {
			pullFailures++
		}
		staleBranches += len(r.Deletable)
	}
	_ = ml.LogSync(len(results), fetchFailures, pullFailures, staleBranches, elapsed)
}

// filterByPattern filters repository paths by matching the base name
// against a glob pattern.
func filterByPattern(repos []string, pattern string) []string {
	var filtered []string
	for _, repoPath := range repos {
		name := filepath.Base(repoPath)
		if matched, _ := filepath.Match(pattern, name); matched {
			filtered = append(filtered, repoPath)
		}
	}
	return filtered
}
