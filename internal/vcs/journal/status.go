package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taskdepot/td/internal/vcs"
)

// isPrivate reports whether a repository-relative path belongs to the
// change log itself rather than to the tracked tree.
func isPrivate(rel string) bool {
	for _, dir := range []string{Dir, ".git"} {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

// HasChanges returns true if there are uncommitted changes
// If paths are specified, only checks those paths
func (j *Journal) HasChanges(paths ...string) (bool, error) {
	statuses, err := j.Status(paths...)
	if err != nil {
		return false, err
	}
	return len(statuses) > 0, nil
}

// Status compares the working tree with the committed tree. New files are
// untracked, changed files modified and missing files deleted. Staged but
// uncommitted content still counts as a difference.
func (j *Journal) Status(paths ...string) ([]vcs.FileStatus, error) {
	filters := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := vcs.RepoRelative(j.repoRoot, p)
		if err != nil {
			return nil, err
		}
		filters = append(filters, rel)
	}

	selected := func(rel string) bool {
		if len(filters) == 0 {
			return true
		}
		for _, f := range filters {
			if f == "." || rel == f || strings.HasPrefix(rel, f+"/") {
				return true
			}
		}
		return false
	}

	tree, err := j.tree(context.Background())
	if err != nil {
		return nil, err
	}

	var statuses []vcs.FileStatus
	seen := make(map[string]bool, len(tree))

	err = filepath.WalkDir(j.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(j.repoRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if isPrivate(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !selected(rel) {
			return nil
		}

		seen[rel] = true
		hash, tracked := tree[rel]
		if !tracked {
			statuses = append(statuses, vcs.FileStatus{
				Path:       rel,
				Status:     vcs.StatusUntracked,
				StagedCode: vcs.StatusUntracked,
			})
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if hashContent(content) != hash {
			statuses = append(statuses, vcs.FileStatus{
				Path:       rel,
				Status:     vcs.StatusModified,
				StagedCode: vcs.StatusUnmodified,
			})
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to scan working tree: %w", err)
	}

	for rel := range tree {
		if seen[rel] || !selected(rel) {
			continue
		}
		statuses = append(statuses, vcs.FileStatus{
			Path:       rel,
			Status:     vcs.StatusDeleted,
			StagedCode: vcs.StatusUnmodified,
		})
	}

	slices.SortFunc(statuses, func(a, b vcs.FileStatus) int {
		return strings.Compare(a.Path, b.Path)
	})
	return statuses, nil
}

// tree loads the committed path -> hash mapping.
func (j *Journal) tree(ctx context.Context) (map[string]string, error) {
	rows, err := j.conn.QueryContext(ctx, `SELECT path, hash FROM tree`)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal tree: %w", err)
	}
	defer rows.Close()

	tree := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to read journal tree: %w", err)
		}
		tree[path] = hash
	}
	return tree, rows.Err()
}
