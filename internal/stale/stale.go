// Package stale decides whether a local branch whose upstream vanished
// may be deleted safely. The policy is fail-closed: the active branch is
// never deleted automatically, unpushed work is never deleted, and
// deletion requires positive proof that the branch is contained in the
// remote's mainline. Any git failure during a check means the proof
// could not be established and the branch is kept.
package stale

import (
	"fmt"
	"log/slog"

	"github.com/teire-tools/teire/pkg/git"
)

// GitOps defines the git queries the analyzer needs. Remote-tracking
// refs are assumed freshly fetched with pruning; the analyzer never
// performs network operations itself.
type GitOps interface {
	Remotes(repoPath string) ([]string, error)
	RefExists(repoPath, ref string) bool
	CommitsNotOnAnyRemote(repoPath, branch string) (int, error)
	RemoteHead(repoPath, remote string) (string, error)
	IsAncestor(repoPath, ancestor, descendant string) (bool, error)
}

// MergeProver supplies positive proof that a branch's work landed in the
// mainline even though the branch is not an ancestor of it, as happens
// with squash and rebase merges. Optional.
type MergeProver interface {
	IsMerged(repoPath, branch, mainline string) (bool, error)
}

// Decision is the analyzer's verdict for one branch.
type Decision struct {
	Deletable bool
	// Warning explains a branch that is kept but worth the user's
	// attention. Empty for branches that are simply irrelevant (no
	// tracking branch, upstream alive) and for deletable branches.
	Warning string
	// MainlineOffer names the mainline ref (e.g. "origin/main") when the
	// currently checked-out branch's upstream vanished, all its commits
	// are pushed, and it is contained in the mainline. The reporter may
	// offer to check the mainline out.
	MainlineOffer string
}

// Analyzer classifies a branch's relationship to its possibly-vanished
// upstream.
type Analyzer struct {
	git            GitOps
	prover         MergeProver // may be nil
	fallbackBranch string      // used when the remote HEAD symref is absent
}

// NewAnalyzer creates an Analyzer. prover may be nil to disable the
// merged-PR fallback; fallbackBranch may be empty to disable the
// configured mainline fallback.
func NewAnalyzer(g GitOps, prover MergeProver, fallbackBranch string) *Analyzer {
	return &Analyzer{git: g, prover: prover, fallbackBranch: fallbackBranch}
}

// Analyze decides whether branch may be deleted. currentBranch is the
// checked-out branch name (empty for detached HEAD).
func (a *Analyzer) Analyze(repoPath string, branch git.Branch, currentBranch string) Decision {
	// A branch that never tracked anything is not ours to judge.
	if branch.Upstream == "" {
		return Decision{}
	}

	isCurrent := branch.Name == currentBranch

	if !a.remoteExists(repoPath, branch.Remote) {
		if isCurrent {
			return Decision{Warning: fmt.Sprintf(
				"current branch %q tracks remote %q which no longer resolves", branch.Name, branch.Remote)}
		}
		return Decision{}
	}

	// Upstream still present after fetch --prune: nothing stale here.
	if a.git.RefExists(repoPath, "refs/remotes/"+branch.Upstream) {
		return Decision{}
	}

	// From here on the upstream is gone. The active branch is never
	// deleted automatically; at most we offer to move off it.
	if isCurrent {
		d := Decision{Warning: fmt.Sprintf(
			"current branch %q: upstream %s was deleted on the remote", branch.Name, branch.Upstream)}
		if mainline, ok := a.safeMainlineSwitch(repoPath, branch); ok {
			d.MainlineOffer = mainline
		}
		return d
	}

	ahead, err := a.git.CommitsNotOnAnyRemote(repoPath, branch.Name)
	if err != nil {
		return Decision{Warning: fmt.Sprintf(
			"branch %q: upstream %s is gone and commit reachability could not be checked: %v",
			branch.Name, branch.Upstream, err)}
	}
	if ahead > 0 {
		return Decision{Warning: fmt.Sprintf(
			"branch %q: upstream %s is gone but %d commit(s) exist on no remote; keeping to avoid losing work",
			branch.Name, branch.Upstream, ahead)}
	}

	mainline, err := a.resolveMainline(repoPath, branch.Remote)
	if err != nil {
		return Decision{Warning: fmt.Sprintf(
			"branch %q: upstream %s is gone but the remote's default branch could not be resolved; keeping",
			branch.Name, branch.Upstream)}
	}

	merged, err := a.git.IsAncestor(repoPath, branch.Name, mainline)
	if err != nil {
		return Decision{Warning: fmt.Sprintf(
			"branch %q: could not verify merge into %s: %v; keeping", branch.Name, mainline, err)}
	}
	if !merged && a.prover != nil {
		// Squash merges leave no ancestry; a merged PR is equally
		// positive proof.
		merged, err = a.prover.IsMerged(repoPath, branch.Name, mainline)
		if err != nil {
			slog.Debug("merged-PR check failed, relying on ancestry only",
				"branch", branch.Name, "error", err)
			merged = false
		}
	}
	if !merged {
		return Decision{Warning: fmt.Sprintf(
			"branch %q: upstream %s is gone and the branch is not merged into %s; keeping",
			branch.Name, branch.Upstream, mainline)}
	}

	return Decision{Deletable: true}
}

// safeMainlineSwitch reports whether checking out the mainline instead
// of the current branch would lose nothing: every commit is on some
// remote and the branch is contained in the mainline.
func (a *Analyzer) safeMainlineSwitch(repoPath string, branch git.Branch) (string, bool) {
	ahead, err := a.git.CommitsNotOnAnyRemote(repoPath, branch.Name)
	if err != nil || ahead > 0 {
		return "", false
	}
	mainline, err := a.resolveMainline(repoPath, branch.Remote)
	if err != nil {
		return "", false
	}
	merged, err := a.git.IsAncestor(repoPath, branch.Name, mainline)
	if err != nil || !merged {
		return "", false
	}
	return mainline, true
}

func (a *Analyzer) remoteExists(repoPath, remote string) bool {
	if remote == "" {
		return false
	}
	remotes, err := a.git.Remotes(repoPath)
	if err != nil {
		return false
	}
	for _, r := range remotes {
		if r == remote {
			return true
		}
	}
	return false
}

// resolveMainline determines the remote's default branch, preferring its
// symbolic HEAD and falling back to the configured default branch name.
func (a *Analyzer) resolveMainline(repoPath, remote string) (string, error) {
	mainline, err := a.git.RemoteHead(repoPath, remote)
	if err == nil {
		return mainline, nil
	}
	if a.fallbackBranch != "" {
		candidate := remote + "/" + a.fallbackBranch
		if a.git.RefExists(repoPath, "refs/remotes/"+candidate) {
			return candidate, nil
		}
	}
	return "", err
}
