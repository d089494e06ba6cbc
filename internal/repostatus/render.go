package repostatus

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Render writes the human-readable risk report for one repository.
// label is the display name (usually the path relative to the
// workspace).
func Render(out io.Writer, label string, s RepoStatus) {
	bold := color.New(color.Bold)
	purple := color.New(color.FgMagenta)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintf(out, "%s %s\n", bold.Sprint(label), purple.Sprintf("(%s)", s.Branch))

	if !s.IsGit {
		fmt.Fprintf(out, "  %s\n", yellow.Sprint("not a git repository"))
		return
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(out, "  %s %s\n", yellow.Sprint("[warn]"), w)
	}
	if s.IsClean() {
		fmt.Fprintf(out, "  %s\n", green.Sprint("clean"))
		return
	}

	for _, b := range s.Unpushed {
		fmt.Fprintf(out, "  %s\n", red.Sprintf("Unpushed commits on branch %s", b))
	}
	for _, b := range s.LocalOnly {
		fmt.Fprintf(out, "  %s\n", red.Sprintf("Local branch with no upstream: %s", b))
	}
	for _, b := range s.DeletedUpstream {
		fmt.Fprintf(out, "  %s\n", red.Sprintf("Local branch with deleted upstream: %s", b))
	}
	if s.Stashes > 0 {
		fmt.Fprintf(out, "  %s\n", cyan.Sprintf("%d stash entry(ies)", s.Stashes))
	}
	for _, c := range s.Changes {
		fmt.Fprintf(out, "  %s\n", yellow.Sprint(c))
	}
	if s.Untracked > 0 {
		fmt.Fprintf(out, "  %s\n", dim.Sprintf("%d untracked file(s)", s.Untracked))
	}
}
