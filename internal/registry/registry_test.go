package registry

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "name: " + name + "\nversion: 0.1.0\n"
	if name == "" {
		content = "version: 0.1.0\n"
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_IndexesManifests(t *testing.T) {
	src := t.TempDir()
	writeManifest(t, filepath.Join(src, "repo-a", "pkg-one"), "pkg-one")
	writeManifest(t, filepath.Join(src, "repo-a", "pkg-two"), "pkg-two")
	writeManifest(t, filepath.Join(src, "repo-b"), "solo")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"pkg-one", "pkg-two", "solo"}
	if !reflect.DeepEqual(r.Names(), want) {
		t.Errorf("Names = %v, want %v", r.Names(), want)
	}

	dir, ok := r.PackagePath("solo")
	if !ok || dir != filepath.Join(src, "repo-b") {
		t.Errorf("PackagePath(solo) = %q, %v", dir, ok)
	}
	if _, ok := r.PackagePath("absent"); ok {
		t.Error("PackagePath must report unknown names")
	}
}

func TestLoad_ManifestNameMayDifferFromDirectory(t *testing.T) {
	src := t.TempDir()
	writeManifest(t, filepath.Join(src, "some-checkout"), "actual_name")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.PackagePath("actual_name"); !ok {
		t.Error("package must be indexed under its manifest name")
	}
	if _, ok := r.PackagePath("some-checkout"); ok {
		t.Error("directory name must not be an alias")
	}
}

func TestLoad_PackagesDoNotNest(t *testing.T) {
	src := t.TempDir()
	writeManifest(t, filepath.Join(src, "outer"), "outer")
	// A manifest below another manifest is never reached.
	writeManifest(t, filepath.Join(src, "outer", "inner"), "inner")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Names(), []string{"outer"}) {
		t.Errorf("Names = %v, want [outer]", r.Names())
	}
}

func TestLoad_DuplicateNameIsError(t *testing.T) {
	src := t.TempDir()
	writeManifest(t, filepath.Join(src, "a"), "dup")
	writeManifest(t, filepath.Join(src, "b"), "dup")

	_, err := Load(src)
	if err == nil || !strings.Contains(err.Error(), `package "dup" defined in both`) {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_NamelessManifestSkipped(t *testing.T) {
	src := t.TempDir()
	writeManifest(t, filepath.Join(src, "broken"), "")
	writeManifest(t, filepath.Join(src, "good"), "good")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Names(), []string{"good"}) {
		t.Errorf("Names = %v, want [good]", r.Names())
	}
}

func TestLoad_HiddenDirectoriesSkipped(t *testing.T) {
	src := t.TempDir()
	writeManifest(t, filepath.Join(src, ".cache", "pkg"), "hidden")
	writeManifest(t, filepath.Join(src, "visible"), "visible")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Names(), []string{"visible"}) {
		t.Errorf("Names = %v, want [visible]", r.Names())
	}
}

func TestLoad_MissingRootIsEmpty(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Names()) != 0 {
		t.Errorf("Names = %v, want empty", r.Names())
	}
}

func TestPackagesUnder(t *testing.T) {
	src := t.TempDir()
	repo := filepath.Join(src, "repo")
	writeManifest(t, filepath.Join(repo, "pkg-one"), "pkg-one")
	writeManifest(t, filepath.Join(repo, "pkg-two"), "pkg-two")
	writeManifest(t, filepath.Join(src, "other"), "other")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.PackagesUnder(repo); !reflect.DeepEqual(got, []string{"pkg-one", "pkg-two"}) {
		t.Errorf("PackagesUnder(repo) = %v", got)
	}
	if got := r.PackagesUnder(filepath.Join(src, "other")); !reflect.DeepEqual(got, []string{"other"}) {
		t.Errorf("PackagesUnder(other) = %v", got)
	}
	// "repo" must not match a sibling sharing the prefix.
	writeManifest(t, filepath.Join(src, "repo-extra"), "extra")
	r, err = Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.PackagesUnder(repo); !reflect.DeepEqual(got, []string{"pkg-one", "pkg-two"}) {
		t.Errorf("PackagesUnder must not match prefix siblings: %v", got)
	}
}

func TestPackageContaining(t *testing.T) {
	src := t.TempDir()
	pkgDir := filepath.Join(src, "repo", "pkg")
	writeManifest(t, pkgDir, "pkg")

	r, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := r.PackageContaining(pkgDir); !ok || name != "pkg" {
		t.Errorf("PackageContaining(pkgDir) = %q, %v", name, ok)
	}
	if name, ok := r.PackageContaining(filepath.Join(pkgDir, "src", "deep")); !ok || name != "pkg" {
		t.Errorf("PackageContaining(subdir) = %q, %v", name, ok)
	}
	if _, ok := r.PackageContaining(src); ok {
		t.Error("the source root is not inside any package")
	}
}
