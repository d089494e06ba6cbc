// Package scanner discovers git repository roots under a workspace
// source directory.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options controls scanning behavior.
type Options struct {
	ExcludePatterns []string
}

// Scan walks rootPath and returns the top-level git working-tree roots
// beneath it, sorted by path.
//
// A repository root is a directory containing a ".git" entry. The entry
// may be a directory (normal repository) or a file (worktrees and
// submodule checkouts). Once a directory is classified as a root the
// walk does not descend into it, so nested submodule checkouts are not
// reported separately.
//
// A missing rootPath is not an error here; it yields an empty result.
// Callers validate the workspace layout before scanning.
func Scan(rootPath string, opts Options) ([]string, error) {
	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	visited := make(map[string]bool)
	var repos []string
	if err := scan(rootPath, opts, visited, &repos); err != nil {
		return nil, err
	}
	sort.Strings(repos)
	return repos, nil
}

func scan(dir string, opts Options, visited map[string]bool, repos *[]string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolving symlink %s: %w", dir, err)
	}
	if visited[resolved] {
		return nil // cycle detected
	}
	visited[resolved] = true

	if IsRepoRoot(dir) {
		*repos = append(*repos, dir)
		return nil // do not descend into repositories
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if IsExcluded(name, opts.ExcludePatterns) {
			continue
		}
		if err := scan(filepath.Join(dir, name), opts, visited, repos); err != nil {
			return err
		}
	}
	return nil
}

// IsRepoRoot reports whether dir directly contains a .git entry of any
// kind.
func IsRepoRoot(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}

// IsExcluded reports whether name matches any of the glob patterns.
func IsExcluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
