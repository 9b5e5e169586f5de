package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/taskdepot/td/internal/vcs"
)

// HasChanges returns true if there are uncommitted changes
// If paths are specified, only checks those paths
func (g *Git) HasChanges(paths ...string) (bool, error) {
	statuses, err := g.Status(paths...)
	if err != nil {
		return false, err
	}
	return len(statuses) > 0, nil
}

// Add stages files for commit. Paths missing from the working tree are
// staged as removals; paths git has never seen are ignored.
func (g *Git) Add(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	var present, missing []string
	for _, p := range paths {
		rel, err := vcs.RepoRelative(g.repoRoot, p)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(filepath.Join(g.repoRoot, filepath.FromSlash(rel))); err == nil {
			present = append(present, rel)
		} else if errors.Is(err, os.ErrNotExist) {
			missing = append(missing, rel)
		} else {
			return err
		}
	}

	ctx := context.Background()

	if len(present) > 0 {
		args := append([]string{"add", "--"}, present...)
		if _, err := g.exec(ctx, args...); err != nil {
			return fmt.Errorf("git add failed: %w", err)
		}
	}

	if len(missing) > 0 {
		args := append([]string{"rm", "--cached", "--quiet", "--ignore-unmatch", "--"}, missing...)
		if _, err := g.exec(ctx, args...); err != nil {
			return fmt.Errorf("git rm failed: %w", err)
		}
	}

	return nil
}

// Status returns the status of files in the working directory
func (g *Git) Status(paths ...string) ([]vcs.FileStatus, error) {
	args := []string{"status", "--porcelain", "--untracked-files=all"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}

	output, err := g.exec(context.Background(), args...)
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	return parsePorcelain(string(output)), nil
}

// parsePorcelain parses `git status --porcelain` (v1) output.
func parsePorcelain(output string) []vcs.FileStatus {
	var statuses []vcs.FileStatus

	for _, line := range strings.Split(output, "\n") {
		// The leading space of the XY code is significant; don't trim.
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}

		// Parse status format: XY filename
		// X = staged status, Y = unstaged status
		staged := line[0:1]
		unstaged := line[1:2]
		path := line[3:]
		if _, to, ok := strings.Cut(path, " -> "); ok {
			path = to
		}

		statuses = append(statuses, vcs.FileStatus{
			Path:       strings.Trim(path, `"`),
			Status:     parseStatusCode(unstaged),
			StagedCode: parseStatusCode(staged),
		})
	}

	return statuses
}

// parseStatusCode converts git status code to vcs.StatusCode
func parseStatusCode(code string) vcs.StatusCode {
	switch code {
	case " ":
		return vcs.StatusUnmodified
	case "M", "T":
		return vcs.StatusModified
	case "A":
		return vcs.StatusAdded
	case "D":
		return vcs.StatusDeleted
	case "R":
		return vcs.StatusRenamed
	case "C":
		return vcs.StatusCopied
	case "?":
		return vcs.StatusUntracked
	case "!":
		return vcs.StatusIgnored
	case "U":
		return vcs.StatusConflict
	default:
		return vcs.StatusUnmodified
	}
}

// hasStaged reports whether the index differs from HEAD.
func (g *Git) hasStaged(ctx context.Context) (bool, error) {
	_, err := g.exec(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff failed: %w", err)
}

// Commit records the staged changes. Nothing is recorded, and false is
// returned, when the index matches HEAD and AllowEmpty is unset.
func (g *Git) Commit(ctx context.Context, opts vcs.CommitOptions) (bool, error) {
	if opts.Message == "" {
		return false, vcs.ErrEmptyMessage
	}

	if !opts.AllowEmpty {
		staged, err := g.hasStaged(ctx)
		if err != nil {
			return false, err
		}
		if !staged {
			return false, nil
		}
	}

	// Build commit arguments
	args := []string{"commit", "--quiet", "--no-verify", "-m", opts.Message}

	if opts.Author != "" {
		args = append(args, "--author", opts.Author)
	}

	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}

	if _, err := g.exec(ctx, args...); err != nil {
		return false, fmt.Errorf("git commit failed: %w", err)
	}

	return true, nil
}
