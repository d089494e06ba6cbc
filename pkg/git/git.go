// Package git provides functions for interacting with git repositories
// by shelling out to the git CLI.
//
// All invocations run with terminal credential prompting disabled so that
// an unreachable or unauthenticated remote fails fast instead of hanging
// a worker. Network operations take a context; cancelling it terminates
// the whole child process group, not just the direct git process.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CmdResult holds the outcome of a single git invocation whose output
// matters even on failure (fetch, pull).
type CmdResult struct {
	Stdout string
	Stderr string
	Err    error
}

// OK reports whether the command exited successfully.
func (r CmdResult) OK() bool { return r.Err == nil }

// Branch describes one local branch and its tracking configuration.
type Branch struct {
	Name     string
	Upstream string // e.g. "origin/feature", empty if no tracking branch
	Remote   string // e.g. "origin", empty if no tracking branch
}

// promptlessEnv returns the process environment with interactive
// credential prompting disabled for git and ssh.
func promptlessEnv() []string {
	env := append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if os.Getenv("GIT_SSH_COMMAND") == "" {
		env = append(env, "GIT_SSH_COMMAND=ssh -oBatchMode=yes")
	}
	return env
}

// run executes a git command in the given directory and returns its
// trimmed combined output.
func run(repoPath string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	cmd.Env = promptlessEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// runCtx executes a git command under a context, capturing stdout and
// stderr separately. On cancellation the child's process group receives
// SIGTERM so spawned helpers (ssh, credential helpers) stop as well.
func runCtx(ctx context.Context, repoPath string, args ...string) CmdResult {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	cmd.Env = promptlessEnv()
	cmd.WaitDelay = 5 * time.Second
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	err := cmd.Run()
	res := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		res.Err = fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return res
}

// IsRepo returns true if the given path is inside a git repository.
func IsRepo(path string) bool {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// FetchAllPrune fetches all remotes and prunes remote-tracking refs whose
// upstream branches were deleted.
func FetchAllPrune(ctx context.Context, repoPath string) CmdResult {
	return runCtx(ctx, repoPath, "fetch", "--all", "--prune")
}

// FetchPrune fetches a single remote with pruning.
func FetchPrune(ctx context.Context, repoPath, remote string) CmdResult {
	return runCtx(ctx, repoPath, "fetch", "--prune", remote)
}

// PullFFOnly updates the current branch to its upstream with
// fast-forward-only semantics. Diverged history is a failure, never an
// automatic merge or rebase.
func PullFFOnly(ctx context.Context, repoPath string) CmdResult {
	return runCtx(ctx, repoPath, "pull", "--ff-only")
}

// HasValidHead returns true when HEAD resolves to a commit. It is false
// for freshly-initialized repositories with an unborn branch.
func HasValidHead(repoPath string) bool {
	cmd := exec.Command("git", "-C", repoPath, "rev-parse", "--verify", "--quiet", "HEAD")
	return cmd.Run() == nil
}

// CurrentBranch returns the name of the currently checked-out branch, or
// an empty string when HEAD is detached.
func CurrentBranch(repoPath string) (string, error) {
	return run(repoPath, "branch", "--show-current")
}

// ShortHead returns the abbreviated hash of the HEAD commit.
func ShortHead(repoPath string) (string, error) {
	return run(repoPath, "rev-parse", "--short", "HEAD")
}

// Branches returns all local branches with their tracking configuration.
func Branches(repoPath string) ([]Branch, error) {
	out, err := run(repoPath, "for-each-ref", "refs/heads",
		"--format=%(refname:short)%00%(upstream:short)%00%(upstream:remotename)")
	if err != nil {
		return nil, err
	}
	var branches []Branch
	for _, line := range splitNonEmpty(out) {
		fields := strings.Split(line, "\x00")
		if len(fields) != 3 || fields[0] == "" {
			continue
		}
		branches = append(branches, Branch{
			Name:     fields[0],
			Upstream: fields[1],
			Remote:   fields[2],
		})
	}
	return branches, nil
}

// Remotes returns the configured remote names.
func Remotes(repoPath string) ([]string, error) {
	out, err := run(repoPath, "remote")
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out), nil
}

// RefExists reports whether the given fully-qualified ref exists, e.g.
// "refs/remotes/origin/feature".
func RefExists(repoPath, ref string) bool {
	cmd := exec.Command("git", "-C", repoPath, "show-ref", "--verify", "--quiet", ref)
	return cmd.Run() == nil
}

// RemoteHead resolves the symbolic HEAD of a remote to its short name,
// e.g. "origin/main". Returns an error when the symref is not set, which
// happens for manually-added remotes that were never cloned from.
func RemoteHead(repoPath, remote string) (string, error) {
	out, err := run(repoPath, "symbolic-ref", "-q", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("refs/remotes/%s/HEAD is not set", remote)
	}
	return out, nil
}

// CommitsNotOnAnyRemote counts commits reachable from the branch but from
// no remote-tracking ref. A positive count means local-only work.
func CommitsNotOnAnyRemote(repoPath, branch string) (int, error) {
	out, err := run(repoPath, "rev-list", "--count", branch, "--not", "--remotes")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// CommitsAheadOfUpstream counts commits on the branch that are not on its
// upstream ref.
func CommitsAheadOfUpstream(repoPath, branch, upstream string) (int, error) {
	out, err := run(repoPath, "rev-list", "--count", upstream+".."+branch)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func IsAncestor(repoPath, ancestor, descendant string) (bool, error) {
	cmd := exec.Command("git", "-C", repoPath, "merge-base", "--is-ancestor", ancestor, descendant)
	cmd.Env = promptlessEnv()
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git merge-base --is-ancestor %s %s: %w", ancestor, descendant, err)
}

// StatusPorcelain returns the porcelain v1 status output, one line per
// changed or untracked path.
func StatusPorcelain(repoPath string) ([]string, error) {
	out, err := run(repoPath, "status", "--porcelain=v1")
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out), nil
}

// StashCount returns the number of stash entries.
func StashCount(repoPath string) (int, error) {
	out, err := run(repoPath, "stash", "list")
	if err != nil {
		return 0, err
	}
	return len(splitNonEmpty(out)), nil
}

// DeleteLocalBranch deletes a local branch. If force is true, uses -D instead of -d.
func DeleteLocalBranch(repoPath, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := run(repoPath, "branch", flag, branch)
	return err
}

// Checkout switches the working tree to the given branch.
func Checkout(repoPath, branch string) error {
	_, err := run(repoPath, "checkout", branch)
	return err
}

// RemoteURL returns the fetch URL of the given remote (usually "origin").
func RemoteURL(repoPath, remote string) (string, error) {
	return run(repoPath, "remote", "get-url", remote)
}

// HasRemote returns true if the given remote exists.
func HasRemote(repoPath, remote string) bool {
	_, err := run(repoPath, "remote", "get-url", remote)
	return err == nil
}

// splitNonEmpty splits a newline-separated string and returns non-empty lines.
func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
