package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taskdepot/td/internal/vcs"
)

// Log returns the most recent commits, newest first.
func (j *Journal) Log(limit int) ([]vcs.CommitInfo, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx := context.Background()

	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, message, created_at FROM commits
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal log: %w", err)
	}

	var commits []vcs.CommitInfo
	var ids []int64
	for rows.Next() {
		var id, created int64
		var message string
		if err := rows.Scan(&id, &message, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read journal log: %w", err)
		}
		ids = append(ids, id)
		commits = append(commits, vcs.CommitInfo{
			ID:        strconv.FormatInt(id, 10),
			Message:   message,
			Timestamp: time.Unix(0, created).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Single connection pool: the commits cursor must be closed before
	// querying changes.
	for i, id := range ids {
		paths, err := j.changedPaths(ctx, id)
		if err != nil {
			return nil, err
		}
		commits[i].Paths = paths
	}

	return commits, nil
}

func (j *Journal) changedPaths(ctx context.Context, commitID int64) ([]string, error) {
	rows, err := j.conn.QueryContext(ctx,
		`SELECT path FROM changes WHERE commit_id = ? ORDER BY path`, commitID)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %d: %w", commitID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Committed returns the committed content of path, and false if the path
// is not in the committed tree.
func (j *Journal) Committed(path string) ([]byte, bool, error) {
	rel, err := vcs.RepoRelative(j.repoRoot, path)
	if err != nil {
		return nil, false, err
	}

	var content []byte
	err = j.conn.QueryRow(`
		SELECT b.content FROM tree t
		JOIN blobs b ON b.hash = t.hash
		WHERE t.path = ?`, rel).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return content, true, nil
}
