// Package repostatus computes the per-repository risk report used to
// gate removal: working-tree changes, untracked files, stashes, and
// branches with unpushed, local-only, or upstream-deleted state. The
// analysis never mutates the repository; inconclusive checks count as
// risk (fail closed).
package repostatus

import (
	"context"
	"fmt"
	"strings"

	"github.com/teire-tools/teire/pkg/git"
)

// GitOps defines the git operations needed by the analyzer.
type GitOps interface {
	IsRepo(path string) bool
	Remotes(repoPath string) ([]string, error)
	FetchPrune(ctx context.Context, repoPath, remote string) git.CmdResult
	HasValidHead(repoPath string) bool
	CurrentBranch(repoPath string) (string, error)
	ShortHead(repoPath string) (string, error)
	Branches(repoPath string) ([]git.Branch, error)
	RefExists(repoPath, ref string) bool
	CommitsAheadOfUpstream(repoPath, branch, upstream string) (int, error)
	StatusPorcelain(repoPath string) ([]string, error)
	StashCount(repoPath string) (int, error)
}

// RepoStatus is the risk report for one repository. It is created fresh
// per analysis and never persisted.
type RepoStatus struct {
	Path   string
	Branch string
	IsGit  bool

	Untracked       int
	Stashes         int
	Unpushed        []string // branches ahead of a live upstream
	LocalOnly       []string // branches with no upstream configured
	DeletedUpstream []string // branches whose upstream vanished
	Changes         []string // classified working-tree change lines
	Warnings        []string // non-gating notes (failed remote fetches)

	// HasChanges is true when any risk category is non-empty or any
	// check was inconclusive.
	HasChanges bool
}

// IsClean reports whether the repository can be removed without losing
// anything: no untracked files, no stashes, no unpushed or local-only
// or upstream-deleted branches, and no working-tree diff.
func (s RepoStatus) IsClean() bool { return !s.HasChanges }

// Analyzer computes RepoStatus records.
type Analyzer struct {
	git GitOps
}

// NewAnalyzer creates an Analyzer over the given git operations.
func NewAnalyzer(g GitOps) *Analyzer {
	return &Analyzer{git: g}
}

// Analyze builds the risk report for one repository. When refresh is
// set, every remote is fetched with pruning first so upstream-deleted
// detection reflects current remote state; a failed fetch degrades to a
// warning and the rest of the analysis proceeds on the cached refs.
func (a *Analyzer) Analyze(ctx context.Context, repoPath string, refresh bool) RepoStatus {
	status := RepoStatus{Path: repoPath}

	if !a.git.IsRepo(repoPath) {
		status.Branch = "not a git repository"
		status.HasChanges = true
		return status
	}
	status.IsGit = true
	status.Branch = a.branchLabel(repoPath)

	if refresh {
		a.refreshRemotes(ctx, repoPath, &status)
	}

	lines, err := a.git.StatusPorcelain(repoPath)
	if err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("could not read working-tree status: %v", err))
		status.HasChanges = true
		return status
	}
	for _, line := range lines {
		change, untracked := classifyStatusLine(line)
		if untracked {
			status.Untracked++
			continue
		}
		if change != "" {
			status.Changes = append(status.Changes, change)
		}
	}

	stashes, err := a.git.StashCount(repoPath)
	if err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("could not list stashes: %v", err))
		status.HasChanges = true
		return status
	}
	status.Stashes = stashes

	a.analyzeBranches(repoPath, &status)

	status.HasChanges = status.HasChanges ||
		status.Untracked > 0 ||
		status.Stashes > 0 ||
		len(status.Unpushed) > 0 ||
		len(status.LocalOnly) > 0 ||
		len(status.DeletedUpstream) > 0 ||
		len(status.Changes) > 0
	return status
}

// analyzeBranches sorts every local branch into unpushed, local-only or
// deleted-upstream. Unlike the sync-path staleness analysis, being
// ahead of a live upstream is a first-class risk category here: removal
// destroys the whole checkout, so any commit not on some remote counts.
func (a *Analyzer) analyzeBranches(repoPath string, status *RepoStatus) {
	branches, err := a.git.Branches(repoPath)
	if err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("could not enumerate branches: %v", err))
		status.HasChanges = true
		return
	}
	for _, b := range branches {
		if b.Upstream == "" {
			status.LocalOnly = append(status.LocalOnly, b.Name)
			continue
		}
		if !a.git.RefExists(repoPath, "refs/remotes/"+b.Upstream) {
			status.DeletedUpstream = append(status.DeletedUpstream, b.Name)
			continue
		}
		ahead, err := a.git.CommitsAheadOfUpstream(repoPath, b.Name, b.Upstream)
		if err != nil {
			status.Warnings = append(status.Warnings,
				fmt.Sprintf("branch %q: could not count unpushed commits: %v", b.Name, err))
			status.HasChanges = true
			continue
		}
		if ahead > 0 {
			status.Unpushed = append(status.Unpushed, b.Name)
		}
	}
}

func (a *Analyzer) refreshRemotes(ctx context.Context, repoPath string, status *RepoStatus) {
	remotes, err := a.git.Remotes(repoPath)
	if err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("could not list remotes: %v", err))
		return
	}
	for _, remote := range remotes {
		if res := a.git.FetchPrune(ctx, repoPath, remote); !res.OK() {
			status.Warnings = append(status.Warnings,
				fmt.Sprintf("fetching %s failed: %s", remote, strings.TrimSpace(res.Stderr)))
		}
	}
}

func (a *Analyzer) branchLabel(repoPath string) string {
	if !a.git.HasValidHead(repoPath) {
		return "no-HEAD"
	}
	branch, err := a.git.CurrentBranch(repoPath)
	if err != nil {
		return "?"
	}
	if branch != "" {
		return branch
	}
	short, err := a.git.ShortHead(repoPath)
	if err != nil {
		return "detached"
	}
	return "detached@" + short
}

// classifyStatusLine maps one porcelain v1 line to a display string, or
// reports it as an untracked file.
func classifyStatusLine(line string) (change string, untracked bool) {
	if len(line) < 4 {
		return "", false
	}
	code, path := line[:2], line[3:]
	if code == "??" {
		return "", true
	}
	switch {
	case strings.ContainsRune(code, 'U') || code == "AA" || code == "DD":
		return "Unmerged: " + path, false
	case strings.ContainsRune(code, 'R'):
		return "Renamed: " + path, false
	case strings.ContainsRune(code, 'C'):
		return "Copied: " + path, false
	case strings.ContainsRune(code, 'A'):
		return "Added: " + path, false
	case strings.ContainsRune(code, 'D'):
		return "Deleted: " + path, false
	case strings.ContainsRune(code, 'M'):
		return "Modified: " + path, false
	case strings.ContainsRune(code, 'T'):
		return "Type changed: " + path, false
	default:
		return fmt.Sprintf("Changed (%s): %s", code, path), false
	}
}

// RealGitOps implements GitOps via pkg/git.
type RealGitOps struct{}

// IsRepo reports whether path is inside a git repository.
func (RealGitOps) IsRepo(path string) bool { return git.IsRepo(path) }

// Remotes lists configured remote names.
func (RealGitOps) Remotes(repoPath string) ([]string, error) { return git.Remotes(repoPath) }

// FetchPrune fetches one remote with pruning.
func (RealGitOps) FetchPrune(ctx context.Context, repoPath, remote string) git.CmdResult {
	return git.FetchPrune(ctx, repoPath, remote)
}

// HasValidHead reports whether HEAD resolves to a commit.
func (RealGitOps) HasValidHead(repoPath string) bool { return git.HasValidHead(repoPath) }

// CurrentBranch returns the checked-out branch name.
func (RealGitOps) CurrentBranch(repoPath string) (string, error) { return git.CurrentBranch(repoPath) }

// ShortHead returns the abbreviated HEAD hash.
func (RealGitOps) ShortHead(repoPath string) (string, error) { return git.ShortHead(repoPath) }

// Branches lists local branches with tracking info.
func (RealGitOps) Branches(repoPath string) ([]git.Branch, error) { return git.Branches(repoPath) }

// RefExists reports whether a fully-qualified ref exists.
func (RealGitOps) RefExists(repoPath, ref string) bool { return git.RefExists(repoPath, ref) }

// CommitsAheadOfUpstream counts commits not on the branch's upstream.
func (RealGitOps) CommitsAheadOfUpstream(repoPath, branch, upstream string) (int, error) {
	return git.CommitsAheadOfUpstream(repoPath, branch, upstream)
}

// StatusPorcelain returns porcelain v1 status lines.
func (RealGitOps) StatusPorcelain(repoPath string) ([]string, error) {
	return git.StatusPorcelain(repoPath)
}

// StashCount returns the number of stash entries.
func (RealGitOps) StashCount(repoPath string) (int, error) { return git.StashCount(repoPath) }
