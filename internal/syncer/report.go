package syncer

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/teire-tools/teire/internal/prompt"
)

// ReportGitOps defines the git operations the reporter may trigger
// during its sequential, user-confirmed phase.
type ReportGitOps interface {
	DeleteLocalBranch(repoPath, branch string, force bool) error
	Checkout(repoPath, branch string) error
}

// Reporter renders a set of sync results in path-sorted order and
// drives the interactive follow-ups (stale branch deletion, mainline
// checkout). Completion order is never user-visible: two runs over the
// same repositories produce the same report layout.
type Reporter struct {
	out     io.Writer
	baseDir string // paths are shown relative to this directory
	git     ReportGitOps
	confirm prompt.Confirmer
}

// NewReporter creates a Reporter writing to out. Paths are displayed
// relative to baseDir.
func NewReporter(out io.Writer, baseDir string, g ReportGitOps, confirm prompt.Confirmer) *Reporter {
	return &Reporter{out: out, baseDir: baseDir, git: g, confirm: confirm}
}

// Report prints every result and returns false when any repository had
// a fetch failure, pull failure, fatal error, or a failed follow-up
// action. It never mutates the results; deletions and checkouts are new
// git operations confirmed one at a time.
func (r *Reporter) Report(results []Result) bool {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	bold := color.New(color.Bold)
	purple := color.New(color.FgMagenta)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	ok := true
	for _, res := range sorted {
		rel := r.rel(res.Path)
		fmt.Fprintf(r.out, "%s %s\n", bold.Sprint(rel), purple.Sprintf("(%s)", res.Branch))

		if res.Err != "" {
			fmt.Fprintf(r.out, "  %s %s\n", red.Sprint("[error]"), res.Err)
			ok = false
			continue
		}

		if !res.FetchOK {
			fmt.Fprintf(r.out, "  %s repository might be out of date\n", red.Sprint("[fetch failed]"))
			printIndented(r.out, res.FetchErr)
			ok = false
			continue // stale-branch data is unreliable without a fetch
		}

		switch {
		case res.PullAttempted && !res.PullOK:
			fmt.Fprintf(r.out, "  %s\n", red.Sprint("[pull failed]"))
			printIndented(r.out, res.PullErr)
			ok = false
		case res.PullAttempted:
			if out := strings.TrimSpace(res.PullOut); out != "" && out != "Already up to date." {
				printIndented(r.out, res.PullOut)
			} else {
				fmt.Fprintf(r.out, "  %s\n", dim.Sprint("up to date"))
			}
		default:
			fmt.Fprintf(r.out, "  %s\n", dim.Sprint("skipped pull – current branch has no upstream"))
		}

		for _, w := range res.Warnings {
			fmt.Fprintf(r.out, "  %s %s\n", yellow.Sprint("[warn]"), w)
		}

		if len(res.Deletable) > 0 {
			if !r.offerDeletions(res) {
				ok = false
			}
		}
		if res.MainlineOffer != "" {
			if !r.offerMainlineCheckout(res) {
				ok = false
			}
		}
	}
	return ok
}

// offerDeletions presents the deletable branches and, on confirmation,
// deletes them one at a time. A failed deletion is reported and the
// remaining branches are still processed.
func (r *Reporter) offerDeletions(res Result) bool {
	fmt.Fprintf(r.out, "  The following local branches are deleted on the remote and fully merged:\n")
	for _, b := range res.Deletable {
		fmt.Fprintf(r.out, "    %s\n", b)
	}

	yes, err := r.confirm.Confirm(fmt.Sprintf("Delete %d branch(es) in %s?", len(res.Deletable), r.rel(res.Path)))
	if err != nil || !yes {
		return err == nil
	}

	ok := true
	for _, b := range res.Deletable {
		if err := r.git.DeleteLocalBranch(res.Path, b, true); err != nil {
			fmt.Fprintf(r.out, "    failed to delete %s: %v\n", b, err)
			ok = false
			continue
		}
		fmt.Fprintf(r.out, "    deleted %s\n", b)
	}
	return ok
}

// offerMainlineCheckout offers to move off a checked-out branch whose
// upstream vanished, onto the remote's mainline.
func (r *Reporter) offerMainlineCheckout(res Result) bool {
	local := res.MainlineOffer
	if i := strings.Index(local, "/"); i >= 0 {
		local = local[i+1:]
	}
	yes, err := r.confirm.Confirm(fmt.Sprintf(
		"Current branch %q in %s is merged and gone upstream. Check out %s?", res.Branch, r.rel(res.Path), local))
	if err != nil || !yes {
		return err == nil
	}
	if err := r.git.Checkout(res.Path, local); err != nil {
		fmt.Fprintf(r.out, "    failed to check out %s: %v\n", local, err)
		return false
	}
	fmt.Fprintf(r.out, "    checked out %s\n", local)
	return true
}

func (r *Reporter) rel(path string) string {
	rel, err := filepath.Rel(r.baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

func printIndented(out io.Writer, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(out, "    %s\n", line)
	}
}
