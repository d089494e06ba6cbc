// Package removal implements the safety-gated removal engine. Items
// (package names or repository paths) are resolved to owning
// repositories before anything is touched; resolution failures and
// out-of-tree paths abort the whole operation, because a partially
// resolved destructive batch has an ambiguous scope. Per-repository
// destruction is sequential and gated behind explicit confirmations.
package removal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/teire-tools/teire/internal/prompt"
	"github.com/teire-tools/teire/internal/repostatus"
	"github.com/teire-tools/teire/internal/workspace"
)

// PackageRegistry resolves package names to directories and enumerates
// packages under a directory.
type PackageRegistry interface {
	PackagePath(name string) (string, bool)
	PackagesUnder(dir string) []string
}

// StatusAnalyzer computes the risk report for one repository.
type StatusAnalyzer interface {
	Analyze(ctx context.Context, repoPath string, refresh bool) repostatus.RepoStatus
}

// ArtifactCleaner removes build outputs for a set of packages.
type ArtifactCleaner interface {
	CleanPackages(names []string) error
}

// Outcome is the terminal state of one repository in a removal run.
type Outcome int

const (
	// Skipped means a confirmation was declined; the repository is untouched.
	Skipped Outcome = iota
	// Deleted means artifacts were cleaned (best effort) and the source
	// tree was removed.
	Deleted
	// DeletionFailed means the filesystem removal itself failed.
	DeletionFailed
)

// RepoOutcome records the terminal state for one repository.
type RepoOutcome struct {
	Path     string
	Packages []string
	State    Outcome
	Err      error // set for DeletionFailed
}

// Options controls a removal run.
type Options struct {
	// Refresh fetches all remotes (with pruning) before computing each
	// repository's status, so upstream-deleted detection is current.
	Refresh bool
}

// Engine wires the gate and the executor together.
type Engine struct {
	ws       *workspace.Workspace
	registry PackageRegistry
	status   StatusAnalyzer
	cleaner  ArtifactCleaner
	confirm  prompt.Confirmer
	out      io.Writer

	// removeAll is swappable in tests; it defaults to os.RemoveAll.
	removeAll func(path string) error
}

// NewEngine creates a removal engine.
func NewEngine(ws *workspace.Workspace, reg PackageRegistry, status StatusAnalyzer, cleaner ArtifactCleaner, confirm prompt.Confirmer, out io.Writer) *Engine {
	return &Engine{
		ws:        ws,
		registry:  reg,
		status:    status,
		cleaner:   cleaner,
		confirm:   confirm,
		out:       out,
		removeAll: os.RemoveAll,
	}
}

// repoSelection is one repository surviving resolution and grouping.
type repoSelection struct {
	root      string
	requested []string // items that selected this repository
	// wholeRepo is true when the repository was selected by path, i.e.
	// the user named the checkout itself rather than packages in it.
	wholeRepo bool
}

// Remove resolves items, applies every gate, and deletes the surviving
// repositories. It returns the per-repository outcomes and an error
// when the operation aborted or any deletion failed. Outcomes are nil
// exactly when the operation aborted before touching anything.
func (e *Engine) Remove(ctx context.Context, items []string, opts Options) ([]RepoOutcome, error) {
	selections, err := e.resolve(items)
	if err != nil {
		return nil, err
	}

	selections, err = e.confirmPartialRepos(selections)
	if err != nil {
		return nil, err
	}

	var outcomes []RepoOutcome
	var failed int
	for _, sel := range selections {
		outcome := e.removeOne(ctx, sel, opts)
		outcomes = append(outcomes, outcome)
		if outcome.State == DeletionFailed {
			failed++
		}
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("failed to delete %d repository(ies)", failed)
	}
	return outcomes, nil
}

// resolve maps every item to its owning repository root, enforcing that
// each one resolves and lies inside the workspace source tree. Any
// violation aborts before destruction so the operation's scope is never
// ambiguous.
func (e *Engine) resolve(items []string) ([]repoSelection, error) {
	unique := dedupe(items)
	if len(unique) == 0 {
		return nil, fmt.Errorf("no packages or repositories specified for removal")
	}

	byRoot := make(map[string]*repoSelection)
	var roots []string
	var missing []string

	addSelection := func(root string, item string, whole bool) {
		sel, ok := byRoot[root]
		if !ok {
			sel = &repoSelection{root: root}
			byRoot[root] = sel
			roots = append(roots, root)
		}
		sel.requested = append(sel.requested, item)
		sel.wholeRepo = sel.wholeRepo || whole
	}

	for _, item := range unique {
		if pkgDir, ok := e.registry.PackagePath(item); ok {
			root, err := e.repoRootContaining(pkgDir)
			if err != nil {
				return nil, fmt.Errorf("locating repository for package %q: %w", item, err)
			}
			addSelection(root, item, false)
			continue
		}
		if root, ok := e.resolvePathItem(item); ok {
			addSelection(root, item, true)
			continue
		}
		missing = append(missing, item)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("packages or repositories not found: %s", strings.Join(missing, ", "))
	}

	for _, root := range roots {
		if !e.ws.ContainsSrcPath(root) {
			return nil, fmt.Errorf("refusing to remove %s: outside the workspace source tree %s", root, e.ws.Src())
		}
	}

	sort.Strings(roots)
	selections := make([]repoSelection, 0, len(roots))
	for _, root := range roots {
		selections = append(selections, *byRoot[root])
	}
	return selections, nil
}

// repoRootContaining ascends from dir to the nearest directory holding
// a .git entry. The search stops at the source root: a package that is
// not inside any repository is a hard error.
func (e *Engine) repoRootContaining(dir string) (string, error) {
	src, err := filepath.EvalSymlinks(e.ws.Src())
	if err != nil {
		return "", err
	}
	path, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", err
	}
	for strings.HasPrefix(path, src+string(os.PathSeparator)) {
		if _, err := os.Lstat(filepath.Join(path, ".git")); err == nil {
			return path, nil
		}
		path = filepath.Dir(path)
	}
	return "", fmt.Errorf("%s is not inside a git repository under %s", dir, src)
}

// resolvePathItem interprets an item as a directory path: absolute, or
// relative to the source root or the workspace root.
func (e *Engine) resolvePathItem(item string) (string, bool) {
	candidates := []string{item}
	if !filepath.IsAbs(item) {
		candidates = []string{
			filepath.Join(e.ws.Src(), item),
			filepath.Join(e.ws.Root, item),
		}
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}
		return resolved, true
	}
	return "", false
}

// confirmPartialRepos asks about repositories that were selected via
// package names but contain packages the user did not request.
// Declining drops the repository from the run (a skip, not an abort).
func (e *Engine) confirmPartialRepos(selections []repoSelection) ([]repoSelection, error) {
	kept := selections[:0]
	for _, sel := range selections {
		repoPackages := e.registry.PackagesUnder(sel.root)
		if !sel.wholeRepo {
			extra := subtract(repoPackages, sel.requested)
			if len(extra) > 0 {
				yes, err := e.confirm.Confirm(fmt.Sprintf(
					"Repository %s contains additional packages not requested for removal: %s. Remove the entire repository anyway?",
					e.ws.Rel(sel.root), strings.Join(extra, ", ")))
				if err != nil {
					return nil, err
				}
				if !yes {
					fmt.Fprintf(e.out, "Skipping repository %s.\n", e.ws.Rel(sel.root))
					continue
				}
			}
		}
		// Removal is always whole-repository from here on; clean the
		// artifacts of everything the repository contains.
		sel.requested = repoPackages
		kept = append(kept, sel)
	}
	return kept, nil
}

// removeOne drives one repository through the gate's state machine:
// status is computed exactly once, each confirmation is asked exactly
// once, artifact cleanup is best-effort, and only then is the tree
// removed.
func (e *Engine) removeOne(ctx context.Context, sel repoSelection, opts Options) RepoOutcome {
	outcome := RepoOutcome{Path: sel.root, Packages: sel.requested, State: Skipped}
	rel := e.ws.Rel(sel.root)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	status := e.status.Analyze(ctx, sel.root, opts.Refresh)
	if !status.IsClean() {
		repostatus.Render(e.out, rel, status)
		yes, err := e.confirm.Confirm(fmt.Sprintf(
			"Repository %s has local changes, stashes, or unpushed commits. Remove anyway and lose them?", rel))
		if err != nil || !yes {
			fmt.Fprintf(e.out, "Skipping repository %s.\n", rel)
			return outcome
		}
	}

	fmt.Fprintf(e.out, "%s\n", bold.Sprintf("About to remove %s.", rel))
	if len(sel.requested) > 0 {
		fmt.Fprintln(e.out, "Includes the following packages:")
		for _, pkg := range sel.requested {
			fmt.Fprintf(e.out, "- %s\n", pkg)
		}
	}
	yes, err := e.confirm.Confirm(fmt.Sprintf("Delete %s?", rel))
	if err != nil || !yes {
		fmt.Fprintf(e.out, "Skipping repository %s.\n", rel)
		return outcome
	}

	// Cleanup and deletion are independent best-effort steps, not a
	// transaction: stale artifacts are an annoyance, a half-removed
	// source tree is not recoverable either way.
	if len(sel.requested) > 0 {
		if err := e.cleaner.CleanPackages(sel.requested); err != nil {
			fmt.Fprintf(e.out, "%s\n", red.Sprintf("Failed to clean build artifacts for %s: %v", rel, err))
		}
	}

	fmt.Fprintf(e.out, "Removing source at %s...\n", rel)
	if err := e.removeAll(sel.root); err != nil {
		fmt.Fprintf(e.out, "%s\n", red.Sprintf("Failed to remove %s: %v", rel, err))
		outcome.State = DeletionFailed
		outcome.Err = err
		return outcome
	}
	fmt.Fprintf(e.out, "Removed %s.\n", rel)
	outcome.State = Deleted
	return outcome
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var unique []string
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		unique = append(unique, item)
	}
	return unique
}

// subtract returns the elements of all that are not in requested.
func subtract(all, requested []string) []string {
	requestedSet := make(map[string]bool, len(requested))
	for _, r := range requested {
		requestedSet[r] = true
	}
	var extra []string
	for _, a := range all {
		if !requestedSet[a] {
			extra = append(extra, a)
		}
	}
	return extra
}
