// Package registry indexes the package manifests found under the
// workspace source tree, mapping package names to their directories.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// ManifestName is the file that marks a directory as a package.
const ManifestName = "package.yaml"

// Package is one indexed package.
type Package struct {
	Name string
	Dir  string // absolute
}

// manifest is the subset of the package manifest the registry needs.
type manifest struct {
	Name string `yaml:"name"`
}

// Registry maps package names to source directories for one workspace.
type Registry struct {
	byName   map[string]Package
	packages []Package
}

// Load walks srcDir and indexes every package manifest beneath it.
// Directories below a manifest are not descended into: packages do not
// nest. Manifests without a name are skipped with a warning. Duplicate
// names are an error because item resolution would be ambiguous.
func Load(srcDir string) (*Registry, error) {
	pkgs, err := discover(srcDir)
	if err != nil {
		return nil, err
	}

	r := &Registry{byName: make(map[string]Package, len(pkgs)), packages: pkgs}
	for _, p := range pkgs {
		if prev, ok := r.byName[p.Name]; ok {
			return nil, fmt.Errorf("package %q defined in both %s and %s", p.Name, prev.Dir, p.Dir)
		}
		r.byName[p.Name] = p
	}
	return r, nil
}

// PackagePath returns the source directory of a package by name.
func (r *Registry) PackagePath(name string) (string, bool) {
	p, ok := r.byName[name]
	return p.Dir, ok
}

// PackagesUnder returns the names of all packages whose directory lies
// in or under dir, sorted.
func (r *Registry) PackagesUnder(dir string) []string {
	dir = filepath.Clean(dir)
	var names []string
	for _, p := range r.packages {
		if p.Dir == dir || strings.HasPrefix(p.Dir, dir+string(os.PathSeparator)) {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// PackageContaining returns the name of the package whose directory
// contains path, if any. Used for --this resolution from a package
// subdirectory.
func (r *Registry) PackageContaining(path string) (string, bool) {
	path = filepath.Clean(path)
	for _, p := range r.packages {
		if path == p.Dir || strings.HasPrefix(path, p.Dir+string(os.PathSeparator)) {
			return p.Name, true
		}
	}
	return "", false
}

// Names returns all package names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.packages))
	for _, p := range r.packages {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func discover(root string) ([]Package, error) {
	var pkgs []Package
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		manifestPath := filepath.Join(path, ManifestName)
		if _, statErr := os.Stat(manifestPath); statErr != nil {
			return nil
		}
		name, parseErr := readManifest(manifestPath)
		if parseErr != nil {
			slog.Warn("skipping unreadable package manifest", "path", manifestPath, "error", parseErr)
		} else {
			pkgs = append(pkgs, Package{Name: name, Dir: path})
		}
		return filepath.SkipDir // packages do not nest
	})
	if err != nil {
		return nil, fmt.Errorf("scanning packages under %s: %w", root, err)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

func readManifest(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return "", err
	}
	if strings.TrimSpace(m.Name) == "" {
		return "", fmt.Errorf("manifest has no name")
	}
	return m.Name, nil
}
