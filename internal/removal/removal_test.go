package removal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/teire-tools/teire/internal/repostatus"
	"github.com/teire-tools/teire/internal/workspace"
)

type fakeRegistry struct {
	packages map[string]string // name -> dir
}

func (f fakeRegistry) PackagePath(name string) (string, bool) {
	dir, ok := f.packages[name]
	return dir, ok
}

func (f fakeRegistry) PackagesUnder(dir string) []string {
	var names []string
	for name, p := range f.packages {
		if p == dir || strings.HasPrefix(p, dir+string(os.PathSeparator)) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type fakeStatus struct {
	riskyPaths map[string]bool
	analyzed   []string
	refreshed  bool
}

func (f *fakeStatus) Analyze(_ context.Context, repoPath string, refresh bool) repostatus.RepoStatus {
	f.analyzed = append(f.analyzed, repoPath)
	f.refreshed = f.refreshed || refresh
	s := repostatus.RepoStatus{Path: repoPath, Branch: "main", IsGit: true}
	if f.riskyPaths[repoPath] {
		s.Unpushed = []string{"feature"}
		s.HasChanges = true
	}
	return s
}

type fakeCleaner struct {
	cleaned [][]string
	err     error
}

func (f *fakeCleaner) CleanPackages(names []string) error {
	f.cleaned = append(f.cleaned, names)
	return f.err
}

// scriptedConfirmer answers questions in order and records them.
type scriptedConfirmer struct {
	answers []bool
	asked   []string
}

func (s *scriptedConfirmer) Confirm(question string) (bool, error) {
	s.asked = append(s.asked, question)
	if len(s.answers) == 0 {
		return false, nil
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

type fixture struct {
	ws       *workspace.Workspace
	registry fakeRegistry
	status   *fakeStatus
	cleaner  *fakeCleaner
	confirm  *scriptedConfirmer
	out      *bytes.Buffer
	removed  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	color.NoColor = true

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	ws, err := workspace.Resolve(root, "", "src")
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		ws:       ws,
		registry: fakeRegistry{packages: map[string]string{}},
		status:   &fakeStatus{riskyPaths: map[string]bool{}},
		cleaner:  &fakeCleaner{},
		confirm:  &scriptedConfirmer{},
		out:      &bytes.Buffer{},
	}
}

// addRepo creates a repository directory under src containing the named
// packages as subdirectories, and registers them.
func (f *fixture) addRepo(t *testing.T, repoName string, pkgs ...string) string {
	t.Helper()
	root := filepath.Join(f.ws.Src(), repoName)
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, pkg := range pkgs {
		dir := filepath.Join(root, pkg)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		f.registry.packages[pkg] = dir
	}
	return root
}

func (f *fixture) engine() *Engine {
	e := NewEngine(f.ws, f.registry, f.status, f.cleaner, f.confirm, f.out)
	e.removeAll = func(path string) error {
		f.removed = append(f.removed, path)
		return nil
	}
	return e
}

func TestRemove_NoItems(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine().Remove(context.Background(), nil, Options{})
	if err == nil || !strings.Contains(err.Error(), "no packages or repositories") {
		t.Errorf("err = %v", err)
	}
}

func TestRemove_UnresolvedItemAborts(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "proj", "pkg-a")
	f.confirm.answers = []bool{true, true}

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a", "no-such", "also-missing"}, Options{})
	if err == nil || !strings.Contains(err.Error(), "packages or repositories not found: no-such, also-missing") {
		t.Errorf("err = %v", err)
	}
	if outcomes != nil {
		t.Errorf("aborted run must produce no outcomes, got %v", outcomes)
	}
	if len(f.removed) != 0 {
		t.Errorf("aborted run deleted %v", f.removed)
	}
}

func TestRemove_OutsideSourceTreeAborts(t *testing.T) {
	f := newFixture(t)
	outside := filepath.Join(f.ws.Root, "not-src")
	if err := os.MkdirAll(filepath.Join(outside, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	f.confirm.answers = []bool{true}

	outcomes, err := f.engine().Remove(context.Background(), []string{outside}, Options{})
	if err == nil || !strings.Contains(err.Error(), "outside the workspace source tree") {
		t.Errorf("err = %v", err)
	}
	if outcomes != nil || len(f.removed) != 0 {
		t.Errorf("outcomes = %v, removed = %v", outcomes, f.removed)
	}
}

func TestRemove_PackageResolvesToRepo(t *testing.T) {
	f := newFixture(t)
	root := f.addRepo(t, "proj", "pkg-a")
	f.confirm.answers = []bool{true} // final delete confirmation

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].State != Deleted || outcomes[0].Path != root {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if len(f.removed) != 1 || f.removed[0] != root {
		t.Errorf("removed = %v", f.removed)
	}
	if len(f.cleaner.cleaned) != 1 || f.cleaner.cleaned[0][0] != "pkg-a" {
		t.Errorf("cleaned = %v", f.cleaner.cleaned)
	}
}

func TestRemove_NestedPackageAscendsToRepoRoot(t *testing.T) {
	f := newFixture(t)
	root := f.addRepo(t, "proj")
	pkgDir := filepath.Join(root, "services", "api")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	f.registry.packages["api"] = pkgDir
	f.confirm.answers = []bool{true}

	outcomes, err := f.engine().Remove(context.Background(), []string{"api"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].Path != root {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestRemove_RepoByRelativePath(t *testing.T) {
	f := newFixture(t)
	root := f.addRepo(t, "proj", "pkg-a", "pkg-b")
	f.confirm.answers = []bool{true}

	// Selecting the checkout by path claims everything in it; the
	// partial-repo question is not asked.
	outcomes, err := f.engine().Remove(context.Background(), []string{"proj"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.confirm.asked) != 1 || !strings.Contains(f.confirm.asked[0], "Delete ") {
		t.Errorf("asked = %v", f.confirm.asked)
	}
	if len(outcomes) != 1 || outcomes[0].Path != root {
		t.Errorf("outcomes = %+v", outcomes)
	}
	// Artifact cleanup covers every package the repository contains.
	if len(f.cleaner.cleaned) != 1 || strings.Join(f.cleaner.cleaned[0], ",") != "pkg-a,pkg-b" {
		t.Errorf("cleaned = %v", f.cleaner.cleaned)
	}
}

func TestRemove_PartialRepoDeclineSkips(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "proj", "pkg-a", "pkg-b")
	f.confirm.answers = []bool{false} // decline the partial-repo question

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 0 {
		t.Errorf("declined repo must be dropped, got %+v", outcomes)
	}
	if len(f.removed) != 0 {
		t.Errorf("removed = %v", f.removed)
	}
	if !strings.Contains(f.confirm.asked[0], "pkg-b") {
		t.Errorf("partial-repo question should name the extra package: %q", f.confirm.asked[0])
	}
	if !strings.Contains(f.out.String(), "Skipping repository") {
		t.Errorf("skip not reported:\n%s", f.out.String())
	}
}

func TestRemove_PartialRepoAcceptRemovesWholeRepo(t *testing.T) {
	f := newFixture(t)
	root := f.addRepo(t, "proj", "pkg-a", "pkg-b")
	f.confirm.answers = []bool{true, true} // partial-repo, then final delete

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].State != Deleted {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if strings.Join(outcomes[0].Packages, ",") != "pkg-a,pkg-b" {
		t.Errorf("Packages = %v", outcomes[0].Packages)
	}
	if len(f.removed) != 1 || f.removed[0] != root {
		t.Errorf("removed = %v", f.removed)
	}
}

func TestRemove_RiskyRepoDeclineSkips(t *testing.T) {
	f := newFixture(t)
	root := f.addRepo(t, "proj", "pkg-a")
	f.status.riskyPaths[root] = true
	f.confirm.answers = []bool{false} // decline the lose-work question

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].State != Skipped {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if len(f.removed) != 0 {
		t.Errorf("removed = %v", f.removed)
	}
	if !strings.Contains(f.out.String(), "Unpushed commits on branch feature") {
		t.Errorf("risk report not rendered:\n%s", f.out.String())
	}
}

func TestRemove_RiskyRepoAcceptedProceeds(t *testing.T) {
	f := newFixture(t)
	root := f.addRepo(t, "proj", "pkg-a")
	f.status.riskyPaths[root] = true
	f.confirm.answers = []bool{true, true} // lose-work, then final delete

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].State != Deleted {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestRemove_FinalConfirmDeclineSkips(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "proj", "pkg-a")
	f.confirm.answers = []bool{false} // decline "Delete proj?"

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].State != Skipped {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if len(f.removed) != 0 || len(f.cleaner.cleaned) != 0 {
		t.Errorf("declined deletion still acted: removed=%v cleaned=%v", f.removed, f.cleaner.cleaned)
	}
}

func TestRemove_CleanFailureStillDeletes(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "proj", "pkg-a")
	f.cleaner.err = errors.New("artifact directory locked")
	f.confirm.answers = []bool{true}

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0].State != Deleted {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if !strings.Contains(f.out.String(), "Failed to clean build artifacts") {
		t.Errorf("clean failure not reported:\n%s", f.out.String())
	}
}

func TestRemove_DeletionFailureAggregates(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "alpha", "pkg-a")
	rootB := f.addRepo(t, "beta", "pkg-b")
	f.confirm.answers = []bool{true, true}

	e := f.engine()
	e.removeAll = func(path string) error {
		if path == rootB {
			return errors.New("device busy")
		}
		f.removed = append(f.removed, path)
		return nil
	}

	outcomes, err := e.Remove(context.Background(), []string{"pkg-a", "pkg-b"}, Options{})
	if err == nil || !strings.Contains(err.Error(), "failed to delete 1 repository(ies)") {
		t.Errorf("err = %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	// Repositories are processed in sorted-path order: alpha then beta.
	if outcomes[0].State != Deleted || outcomes[1].State != DeletionFailed {
		t.Errorf("states = %v, %v", outcomes[0].State, outcomes[1].State)
	}
	if outcomes[1].Err == nil {
		t.Error("DeletionFailed outcome must carry the error")
	}
}

func TestRemove_DuplicateItemsCollapse(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "proj", "pkg-a")
	f.confirm.answers = []bool{true}

	outcomes, err := f.engine().Remove(context.Background(), []string{"pkg-a", "pkg-a", ""}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if len(f.status.analyzed) != 1 {
		t.Errorf("status analyzed %d times", len(f.status.analyzed))
	}
}

func TestRemove_RefreshPropagates(t *testing.T) {
	f := newFixture(t)
	f.addRepo(t, "proj", "pkg-a")
	f.confirm.answers = []bool{true}

	if _, err := f.engine().Remove(context.Background(), []string{"pkg-a"}, Options{Refresh: true}); err != nil {
		t.Fatal(err)
	}
	if !f.status.refreshed {
		t.Error("Refresh option not passed to the status analyzer")
	}
}
