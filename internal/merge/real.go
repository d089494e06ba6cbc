package merge

import "github.com/teire-tools/teire/pkg/git"

// RealResolver implements RemoteResolver using the pkg/git package.
type RealResolver struct{}

// RemoteURL returns the fetch URL of the given remote.
func (RealResolver) RemoteURL(repoPath, remote string) (string, error) {
	return git.RemoteURL(repoPath, remote)
}
