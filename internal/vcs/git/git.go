// Package git provides a Git implementation of the change log.
//
// This package drives the git binary to record repository batches as
// commits. A td repository using this backend is an ordinary git
// repository whose root is the td repository root.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskdepot/td/internal/vcs"
)

// Git implements the vcs.VCS interface for git repositories.
type Git struct {
	// repoRoot is the repository root directory path
	repoRoot string
}

// Open attaches to the git repository rooted at root.
func Open(root string) (*Git, error) {
	if !vcs.IsGitAvailable() {
		return nil, vcs.ErrVCSNotAvailable
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	g := &Git{repoRoot: absRoot}

	output, err := g.exec(context.Background(), "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, vcs.ErrNotInVCS
	}

	top := normalizeRepoRoot(strings.TrimSpace(string(output)))
	if top != normalizeRepoRoot(absRoot) {
		return nil, fmt.Errorf("%w: %s is inside the git repository at %s", vcs.ErrNotInVCS, absRoot, top)
	}

	return g, nil
}

// Init creates a new git repository at root. When no commit identity is
// configured, a local one is set so that commits never prompt.
func Init(root string) (*Git, error) {
	if !vcs.IsGitAvailable() {
		return nil, vcs.ErrVCSNotAvailable
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, err
	}

	g := &Git{repoRoot: absRoot}
	ctx := context.Background()

	if _, err := g.exec(ctx, "init", "--quiet"); err != nil {
		return nil, err
	}

	defaults := [][2]string{
		{"user.name", "td"},
		{"user.email", "td@localhost"},
	}
	for _, kv := range defaults {
		// git config exits 1 when the key is unset
		if _, err := g.exec(ctx, "config", "--get", kv[0]); err == nil {
			continue
		}
		if _, err := g.exec(ctx, "config", kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Name returns the VCS type (git)
func (g *Git) Name() vcs.Type {
	return vcs.TypeGit
}

// RepoRoot returns the repository root directory path
func (g *Git) RepoRoot() string {
	return g.repoRoot
}

// Close is a no-op; every operation runs its own git process.
func (g *Git) Close() error {
	return nil
}

// exec runs git in the repository root.
func (g *Git) exec(ctx context.Context, args ...string) ([]byte, error) {
	return vcs.ExecContext(ctx, vcs.DefaultTimeout, g.repoRoot, "git", args...)
}

// normalizeRepoRoot normalizes the repository root path
// Resolves symlinks and canonicalizes case on case-insensitive filesystems
func normalizeRepoRoot(path string) string {
	// Normalize Windows paths
	path = filepath.FromSlash(path)

	// Resolve symlinks
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	return filepath.Clean(path)
}
