// Package doctor runs workspace health checks: stray non-repository
// directories cluttering the source tree, and checkouts whose upstream
// repository has been archived on GitHub.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teire-tools/teire/internal/github"
	"github.com/teire-tools/teire/internal/parallel"
	"github.com/teire-tools/teire/internal/scanner"
	"github.com/teire-tools/teire/pkg/git"
)

// StrayDir describes a directory under the source tree that contains no
// git repository at all.
type StrayDir struct {
	Path         string
	Name         string
	Size         int64     // total size in bytes
	LastModified time.Time // most recent modification time
	FileCount    int
	Summary      string // brief contents summary, e.g. "12 .go, 5 .yaml, 2 others"
}

// ArchivedRepo describes a checkout whose origin repository is archived.
type ArchivedRepo struct {
	Path  string
	Owner string
	Repo  string
}

// Options controls health checks.
type Options struct {
	ExcludePatterns []string
}

// FindStrayDirs returns the immediate children of srcPath that neither
// are git repositories nor contain one anywhere beneath. Inspection is
// parallelized across the given number of workers.
func FindStrayDirs(ctx context.Context, srcPath string, opts Options, workers int) ([]StrayDir, error) {
	entries, err := os.ReadDir(srcPath)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", srcPath, err)
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if scanner.IsExcluded(name, opts.ExcludePatterns) {
			continue
		}
		child := filepath.Join(srcPath, name)
		repos, err := scanner.Scan(child, scanner.Options{ExcludePatterns: opts.ExcludePatterns})
		if err != nil || len(repos) > 0 {
			continue
		}
		candidates = append(candidates, child)
	}

	results := parallel.Run(ctx, candidates, workers, func(_ context.Context, path string) *StrayDir {
		info, err := inspectDir(path)
		if err != nil {
			return nil
		}
		return &info
	}, nil)

	var strays []StrayDir
	for _, r := range results {
		if r != nil {
			strays = append(strays, *r)
		}
	}
	sort.Slice(strays, func(i, j int) bool { return strays[i].Path < strays[j].Path })
	return strays, nil
}

// FindArchivedRepos checks each repository's origin on GitHub and
// returns those whose upstream is archived. Non-GitHub remotes and API
// failures are silently skipped; this check is advisory.
func FindArchivedRepos(ctx context.Context, repos []string, client *github.Client, workers int) []ArchivedRepo {
	results := parallel.Run(ctx, repos, workers, func(_ context.Context, repoPath string) *ArchivedRepo {
		url, err := git.RemoteURL(repoPath, "origin")
		if err != nil {
			return nil
		}
		owner, repo, ok := github.ParseGitHubRemote(url)
		if !ok {
			return nil
		}
		archived, err := client.IsArchived(owner, repo)
		if err != nil || !archived {
			return nil
		}
		return &ArchivedRepo{Path: repoPath, Owner: owner, Repo: repo}
	}, nil)

	var archived []ArchivedRepo
	for _, r := range results {
		if r != nil {
			archived = append(archived, *r)
		}
	}
	sort.Slice(archived, func(i, j int) bool { return archived[i].Path < archived[j].Path })
	return archived
}

// inspectDir walks a directory to collect size, file count, last
// modified time, and a summary of file types.
func inspectDir(dirPath string) (StrayDir, error) {
	var totalSize int64
	var fileCount int
	var lastModified time.Time
	extCounts := make(map[string]int)

	err := filepath.WalkDir(dirPath, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}

		fileCount++

		info, err := d.Info()
		if err != nil {
			return nil // skip files we can't stat
		}
		totalSize += info.Size()
		if info.ModTime().After(lastModified) {
			lastModified = info.ModTime()
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == "" {
			ext = "(no ext)"
		}
		extCounts[ext]++

		return nil
	})
	if err != nil {
		return StrayDir{}, fmt.Errorf("walking %s: %w", dirPath, err)
	}

	return StrayDir{
		Path:         dirPath,
		Name:         filepath.Base(dirPath),
		Size:         totalSize,
		LastModified: lastModified,
		FileCount:    fileCount,
		Summary:      buildSummary(extCounts),
	}, nil
}

// buildSummary formats extension counts into a readable summary string.
// It shows the top 3 extensions by count, with the rest grouped as
// "others".
func buildSummary(extCounts map[string]int) string {
	if len(extCounts) == 0 {
		return "empty"
	}

	type extCount struct {
		ext   string
		count int
	}

	sorted := make([]extCount, 0, len(extCounts))
	for ext, count := range extCounts {
		sorted = append(sorted, extCount{ext, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].ext < sorted[j].ext
	})

	const maxShown = 3
	var parts []string
	othersCount := 0

	for i, ec := range sorted {
		if i < maxShown {
			parts = append(parts, fmt.Sprintf("%d %s", ec.count, ec.ext))
		} else {
			othersCount += ec.count
		}
	}

	if othersCount > 0 {
		parts = append(parts, fmt.Sprintf("%d others", othersCount))
	}

	return strings.Join(parts, ", ")
}
