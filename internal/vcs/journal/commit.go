package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/taskdepot/td/internal/vcs"
)

// hashContent returns the blob key for content.
func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Add snapshots the current content of paths for the next commit. A path
// that does not exist is staged as a removal.
func (j *Journal) Add(paths []string) error {
	snapshots := make(map[string]stagedFile, len(paths))

	for _, p := range paths {
		rel, err := vcs.RepoRelative(j.repoRoot, p)
		if err != nil {
			return err
		}
		if isPrivate(rel) {
			return fmt.Errorf("cannot stage journal path %s", rel)
		}

		content, err := os.ReadFile(filepath.Join(j.repoRoot, filepath.FromSlash(rel)))
		switch {
		case err == nil:
			if content == nil {
				content = []byte{}
			}
			snapshots[rel] = stagedFile{content: content}
		case errors.Is(err, os.ErrNotExist):
			snapshots[rel] = stagedFile{}
		default:
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for rel, s := range snapshots {
		j.staged[rel] = s
	}
	return nil
}

// Commit records every staged path that differs from the committed tree
// in a single transaction. The staging area is cleared on success.
func (j *Journal) Commit(ctx context.Context, opts vcs.CommitOptions) (bool, error) {
	if opts.Message == "" {
		return false, vcs.ErrEmptyMessage
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	type change struct {
		path    string
		hash    string
		content []byte
		removed bool
	}

	paths := make([]string, 0, len(j.staged))
	for p := range j.staged {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var changes []change
	for _, p := range paths {
		s := j.staged[p]

		var current string
		err := tx.QueryRowContext(ctx, `SELECT hash FROM tree WHERE path = ?`, p).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("failed to read tree entry %s: %w", p, err)
		}
		tracked := err == nil

		if s.content == nil {
			if tracked {
				changes = append(changes, change{path: p, removed: true})
			}
			continue
		}

		hash := hashContent(s.content)
		if !tracked || hash != current {
			changes = append(changes, change{path: p, hash: hash, content: s.content})
		}
	}

	if len(changes) == 0 && !opts.AllowEmpty {
		clear(j.staged)
		return false, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO commits (message, author, created_at) VALUES (?, ?, ?)`,
		opts.Message, opts.Author, time.Now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to record commit: %w", err)
	}
	commitID, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to record commit: %w", err)
	}

	for _, c := range changes {
		if c.removed {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO changes (commit_id, path, hash) VALUES (?, ?, NULL)`, commitID, c.path); err != nil {
				return false, fmt.Errorf("failed to record removal of %s: %w", c.path, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM tree WHERE path = ?`, c.path); err != nil {
				return false, fmt.Errorf("failed to update tree for %s: %w", c.path, err)
			}
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO blobs (hash, content) VALUES (?, ?)`, c.hash, c.content); err != nil {
			return false, fmt.Errorf("failed to store blob for %s: %w", c.path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO changes (commit_id, path, hash) VALUES (?, ?, ?)`, commitID, c.path, c.hash); err != nil {
			return false, fmt.Errorf("failed to record change of %s: %w", c.path, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tree (path, hash) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET hash = excluded.hash`, c.path, c.hash); err != nil {
			return false, fmt.Errorf("failed to update tree for %s: %w", c.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit journal transaction: %w", err)
	}

	clear(j.staged)
	return true, nil
}
