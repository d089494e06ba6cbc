// Package workspace resolves the workspace root and answers path
// containment questions against its source subtree.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace describes one resolved workspace: a root directory and the
// source subdirectory holding the git checkouts.
type Workspace struct {
	Root   string // absolute
	srcDir string // relative to Root
}

// Resolve determines the workspace root. Precedence: the explicit value
// (CLI flag), then the configured directory (which already reflects the
// TEIRE_WORKSPACE environment variable), then an upward search from the
// current directory for an ancestor containing the source subdirectory.
func Resolve(explicit, configured, srcDir string) (*Workspace, error) {
	for _, candidate := range []string{explicit, configured} {
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return nil, fmt.Errorf("resolving workspace path %s: %w", candidate, err)
		}
		if !isDir(abs) {
			return nil, fmt.Errorf("workspace %s does not exist", abs)
		}
		return &Workspace{Root: abs, srcDir: srcDir}, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		if isDir(filepath.Join(dir, srcDir)) {
			return &Workspace{Root: dir, srcDir: srcDir}, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}
	return nil, fmt.Errorf("no workspace found: set --workspace, TEIRE_WORKSPACE, or run inside a workspace containing %q", srcDir)
}

// Src returns the absolute path of the source subtree.
func (w *Workspace) Src() string {
	return filepath.Join(w.Root, w.srcDir)
}

// ContainsSrcPath reports whether path lies strictly inside the source
// subtree. Symlinks are resolved on both sides so a link pointing
// outside the workspace cannot pass the check.
func (w *Workspace) ContainsSrcPath(path string) bool {
	src, err := filepath.EvalSymlinks(w.Src())
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(resolved, src+string(os.PathSeparator))
}

// Rel returns path relative to the workspace root when possible, for
// display purposes only.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return path
	}
	return rel
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
