package syncer

import (
	"context"

	"github.com/teire-tools/teire/pkg/git"
)

// RealGitOps implements the git interfaces of this package, the stale
// analyzer, and the reporter by delegating to pkg/git.
type RealGitOps struct{}

// FetchAllPrune fetches all remotes with pruning.
func (RealGitOps) FetchAllPrune(ctx context.Context, repoPath string) git.CmdResult {
	return git.FetchAllPrune(ctx, repoPath)
}

// PullFFOnly runs a fast-forward-only pull.
func (RealGitOps) PullFFOnly(ctx context.Context, repoPath string) git.CmdResult {
	return git.PullFFOnly(ctx, repoPath)
}

// HasValidHead reports whether HEAD resolves to a commit.
func (RealGitOps) HasValidHead(repoPath string) bool {
	return git.HasValidHead(repoPath)
}

// CurrentBranch returns the checked-out branch name, empty if detached.
func (RealGitOps) CurrentBranch(repoPath string) (string, error) {
	return git.CurrentBranch(repoPath)
}

// ShortHead returns the abbreviated HEAD commit hash.
func (RealGitOps) ShortHead(repoPath string) (string, error) {
	return git.ShortHead(repoPath)
}

// Branches lists local branches with tracking info.
func (RealGitOps) Branches(repoPath string) ([]git.Branch, error) {
	return git.Branches(repoPath)
}

// RefExists reports whether a fully-qualified ref exists.
func (RealGitOps) RefExists(repoPath, ref string) bool {
	return git.RefExists(repoPath, ref)
}

// Remotes lists configured remote names.
func (RealGitOps) Remotes(repoPath string) ([]string, error) {
	return git.Remotes(repoPath)
}

// CommitsNotOnAnyRemote counts commits unreachable from every remote.
func (RealGitOps) CommitsNotOnAnyRemote(repoPath, branch string) (int, error) {
	return git.CommitsNotOnAnyRemote(repoPath, branch)
}

// RemoteHead resolves a remote's default branch from its symbolic HEAD.
func (RealGitOps) RemoteHead(repoPath, remote string) (string, error) {
	return git.RemoteHead(repoPath, remote)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (RealGitOps) IsAncestor(repoPath, ancestor, descendant string) (bool, error) {
	return git.IsAncestor(repoPath, ancestor, descendant)
}

// DeleteLocalBranch force-deletes a local branch.
func (RealGitOps) DeleteLocalBranch(repoPath, branch string, force bool) error {
	return git.DeleteLocalBranch(repoPath, branch, force)
}

// Checkout switches the working tree to the given branch.
func (RealGitOps) Checkout(repoPath, branch string) error {
	return git.Checkout(repoPath, branch)
}
