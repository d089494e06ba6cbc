// Package syncer implements the parallel synchronization engine: every
// repository in the workspace is fetched, fast-forward pulled where a
// live upstream exists, and scanned for branches whose upstream was
// deleted on the remote.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/teire-tools/teire/internal/parallel"
	"github.com/teire-tools/teire/internal/stale"
	"github.com/teire-tools/teire/pkg/git"
)

// GitOps defines the git operations needed by the engine.
// This interface enables testing with mocks.
type GitOps interface {
	FetchAllPrune(ctx context.Context, repoPath string) git.CmdResult
	PullFFOnly(ctx context.Context, repoPath string) git.CmdResult
	HasValidHead(repoPath string) bool
	CurrentBranch(repoPath string) (string, error)
	ShortHead(repoPath string) (string, error)
	Branches(repoPath string) ([]git.Branch, error)
	RefExists(repoPath, ref string) bool
}

// BranchAnalyzer classifies one branch's relationship to its upstream.
type BranchAnalyzer interface {
	Analyze(repoPath string, branch git.Branch, currentBranch string) stale.Decision
}

// Result is the immutable record produced for one repository. Workers
// create it, the reporter consumes it; nothing mutates it in between.
type Result struct {
	Path   string
	Branch string // branch name, "detached@<short>", or "no-HEAD"

	FetchOK  bool
	FetchErr string // captured stderr of a failed fetch

	PullAttempted bool
	PullOK        bool
	PullOut       string
	PullErr       string

	Deletable     []string // branches safe to delete, pending confirmation
	Warnings      []string
	MainlineOffer string // mainline ref to offer checking out, or empty

	// Err records an unexpected failure inside the worker. All other
	// fields hold conservative defaults when it is set.
	Err string
}

// ResultFunc is called sequentially as each repository finishes.
type ResultFunc func(completed, total int, result Result)

// Syncer fans repositories out to a bounded worker pool.
type Syncer struct {
	git      GitOps
	analyzer BranchAnalyzer
	workers  int
}

// New creates a Syncer processing up to workers repositories at once.
func New(g GitOps, analyzer BranchAnalyzer, workers int) *Syncer {
	return &Syncer{git: g, analyzer: analyzer, workers: workers}
}

// Run produces one Result per repository. Results arrive in completion
// order; callers needing stable output sort by path (see Reporter).
// Cancelling ctx stops submitting new repositories and terminates
// in-flight git subprocess groups.
func (s *Syncer) Run(ctx context.Context, repos []string, onResult ResultFunc) []Result {
	return parallel.Run(ctx, repos, s.workers, s.processRepo, func(completed, total int, r Result) {
		if onResult != nil {
			onResult(completed, total, r)
		}
	})
}

// processRepo runs the strictly-ordered per-repository sequence:
// fetch-and-prune, then branch enumeration, then the upstream-dependent
// pull, then staleness analysis. A panic anywhere is converted into a
// fatal Result so one repository cannot take down the pool.
func (s *Syncer) processRepo(ctx context.Context, repoPath string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("repository worker panicked", "repo", repoPath, "error", r)
			res = Result{Path: repoPath, Branch: "?", Err: fmt.Sprint(r)}
		}
	}()

	res = Result{Path: repoPath}

	// An unborn HEAD means a freshly-initialized repository; there is
	// nothing to pull and no refs to analyze.
	if !s.git.HasValidHead(repoPath) {
		res.Branch = "no-HEAD"
		res.FetchOK = true
		res.PullOK = true
		return res
	}

	res.Branch = s.branchLabel(repoPath)

	fetch := s.git.FetchAllPrune(ctx, repoPath)
	res.FetchOK = fetch.OK()
	if !res.FetchOK {
		res.FetchErr = fetch.Stderr
		// Remote-tracking refs are not current; staleness analysis
		// would be unreliable, and the reporter skips pull output too.
		return res
	}

	currentBranch, err := s.git.CurrentBranch(repoPath)
	if err != nil {
		res.Err = fmt.Sprintf("determining current branch: %v", err)
		return res
	}

	branches, err := s.git.Branches(repoPath)
	if err != nil {
		res.Err = fmt.Sprintf("enumerating branches: %v", err)
		return res
	}

	// Pull only a checked-out branch whose upstream still resolves
	// after the prune. A deleted-and-pruned upstream must not produce a
	// pull failure; it shows up in the staleness findings instead.
	res.PullOK = true
	if currentBranch != "" {
		for _, b := range branches {
			if b.Name != currentBranch || b.Upstream == "" {
				continue
			}
			if !s.git.RefExists(repoPath, "refs/remotes/"+b.Upstream) {
				break
			}
			pull := s.git.PullFFOnly(ctx, repoPath)
			res.PullAttempted = true
			res.PullOK = pull.OK()
			res.PullOut = pull.Stdout
			res.PullErr = pull.Stderr
			break
		}
	}

	for _, b := range branches {
		d := s.analyzer.Analyze(repoPath, b, currentBranch)
		if d.Deletable {
			res.Deletable = append(res.Deletable, b.Name)
		}
		if d.Warning != "" {
			res.Warnings = append(res.Warnings, d.Warning)
		}
		if d.MainlineOffer != "" {
			res.MainlineOffer = d.MainlineOffer
		}
	}
	return res
}

// branchLabel names the HEAD state for display: the branch name,
// "detached@<short-hash>" or the repository directory name on failure.
func (s *Syncer) branchLabel(repoPath string) string {
	branch, err := s.git.CurrentBranch(repoPath)
	if err != nil {
		slog.Debug("could not determine current branch",
			"repo", filepath.Base(repoPath), "error", err)
		return "?"
	}
	if branch != "" {
		return branch
	}
	short, err := s.git.ShortHead(repoPath)
	if err != nil {
		return "detached"
	}
	return "detached@" + short
}
