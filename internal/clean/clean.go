// Package clean removes the build outputs of packages from the
// workspace artifact directories.
package clean

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Cleaner removes per-package artifact subdirectories (e.g. build/<pkg>
// and install/<pkg> under the workspace root).
type Cleaner struct {
	workspaceRoot string
	artifactDirs  []string
}

// New creates a Cleaner for the given workspace root and artifact
// directory names (relative to the root).
func New(workspaceRoot string, artifactDirs []string) *Cleaner {
	return &Cleaner{workspaceRoot: workspaceRoot, artifactDirs: artifactDirs}
}

// CleanPackages removes the artifact subdirectories of the named
// packages. A missing subdirectory is not an error; removal failures
// are collected and the remaining packages are still processed.
func (c *Cleaner) CleanPackages(names []string) error {
	var errs []error
	for _, name := range names {
		for _, dir := range c.artifactDirs {
			target := filepath.Join(c.workspaceRoot, dir, name)
			if _, err := os.Stat(target); os.IsNotExist(err) {
				continue
			}
			slog.Debug("removing artifacts", "package", name, "dir", target)
			if err := os.RemoveAll(target); err != nil {
				errs = append(errs, fmt.Errorf("removing %s: %w", target, err))
			}
		}
	}
	return errors.Join(errs...)
}

// CleanLogs removes the workspace log directory.
func (c *Cleaner) CleanLogs() error {
	target := filepath.Join(c.workspaceRoot, "log")
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("removing %s: %w", target, err)
	}
	return nil
}
