// Package merge supplies positive proof that a branch's work landed in
// the mainline when ancestry checks cannot show it, as with squash and
// rebase merges. The proof comes from GitHub pull request state; any
// API failure degrades to "not proven merged".
package merge

import (
	"log/slog"
	"strings"

	"github.com/teire-tools/teire/internal/github"
)

// RemoteResolver looks up the fetch URL of a remote.
type RemoteResolver interface {
	RemoteURL(repoPath, remote string) (string, error)
}

// PRChecker queries the GitHub API for the PR state of a branch head.
type PRChecker interface {
	BranchPRState(owner, repo, branch string) (github.PRState, error)
}

// Prover answers whether a branch was merged via a pull request.
type Prover struct {
	git RemoteResolver
	pr  PRChecker
}

// NewProver creates a Prover. API errors and non-GitHub remotes never
// fail a check; they yield "not merged".
func NewProver(git RemoteResolver, pr PRChecker) *Prover {
	return &Prover{git: git, pr: pr}
}

// IsMerged reports whether branch has a merged pull request on the
// GitHub repository behind mainline's remote. mainline is a
// remote-tracking ref such as "origin/main"; only its remote part is
// used to resolve the repository.
func (p *Prover) IsMerged(repoPath, branch, mainline string) (bool, error) {
	remote, _, found := strings.Cut(mainline, "/")
	if !found || remote == "" {
		return false, nil
	}

	remoteURL, err := p.git.RemoteURL(repoPath, remote)
	if err != nil {
		slog.Debug("could not get remote URL, skipping PR check",
			"repo", repoPath, "remote", remote, "error", err)
		return false, nil
	}
	owner, repo, ok := github.ParseGitHubRemote(remoteURL)
	if !ok {
		slog.Debug("non-GitHub remote, skipping PR check",
			"repo", repoPath, "url", remoteURL)
		return false, nil
	}

	state, err := p.pr.BranchPRState(owner, repo, branch)
	if err != nil {
		slog.Debug("PR check failed, assuming not merged",
			"repo", owner+"/"+repo, "branch", branch, "error", err)
		return false, nil
	}
	return state == github.PRStateMerged, nil
}
