package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestResolve_ExplicitWins(t *testing.T) {
	explicit := newRoot(t)
	configured := newRoot(t)

	ws, err := Resolve(explicit, configured, "src")
	if err != nil {
		t.Fatal(err)
	}
	if ws.Root != explicit {
		t.Errorf("Root = %q, want %q", ws.Root, explicit)
	}
}

func TestResolve_ConfiguredFallback(t *testing.T) {
	configured := newRoot(t)
	ws, err := Resolve("", configured, "src")
	if err != nil {
		t.Fatal(err)
	}
	if ws.Root != configured {
		t.Errorf("Root = %q, want %q", ws.Root, configured)
	}
}

func TestResolve_MissingExplicitIsError(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "absent"), "", "src")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("err = %v", err)
	}
}

func TestResolve_SearchesUpward(t *testing.T) {
	root := newRoot(t)
	nested := filepath.Join(root, "src", "some", "repo")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	ws, err := Resolve("", "", "src")
	if err != nil {
		t.Fatal(err)
	}
	if ws.Root != root {
		t.Errorf("Root = %q, want %q", ws.Root, root)
	}
}

func TestSrc(t *testing.T) {
	root := newRoot(t)
	ws, err := Resolve(root, "", "src")
	if err != nil {
		t.Fatal(err)
	}
	if ws.Src() != filepath.Join(root, "src") {
		t.Errorf("Src = %q", ws.Src())
	}
}

func TestContainsSrcPath(t *testing.T) {
	root := newRoot(t)
	inside := filepath.Join(root, "src", "repo")
	outside := filepath.Join(root, "build")
	if err := os.MkdirAll(inside, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}

	ws, err := Resolve(root, "", "src")
	if err != nil {
		t.Fatal(err)
	}
	if !ws.ContainsSrcPath(inside) {
		t.Error("path under src reported outside")
	}
	if ws.ContainsSrcPath(outside) {
		t.Error("sibling of src reported inside")
	}
	// The source root itself is not strictly inside.
	if ws.ContainsSrcPath(ws.Src()) {
		t.Error("src root itself must not count as contained")
	}
	if ws.ContainsSrcPath(filepath.Join(root, "src-other")) {
		t.Error("prefix sibling must not count as contained")
	}
}

func TestContainsSrcPath_SymlinkEscape(t *testing.T) {
	root := newRoot(t)
	target := t.TempDir()
	link := filepath.Join(root, "src", "escape")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	ws, err := Resolve(root, "", "src")
	if err != nil {
		t.Fatal(err)
	}
	if ws.ContainsSrcPath(link) {
		t.Error("symlink escaping the source tree passed the containment check")
	}
}

func TestRel(t *testing.T) {
	root := newRoot(t)
	ws, err := Resolve(root, "", "src")
	if err != nil {
		t.Fatal(err)
	}
	if got := ws.Rel(filepath.Join(root, "src", "repo")); got != filepath.Join("src", "repo") {
		t.Errorf("Rel = %q", got)
	}
}
