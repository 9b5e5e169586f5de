package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taskdepot/td/internal/vcs"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// Log returns the most recent commits on HEAD, newest first.
func (g *Git) Log(limit int) ([]vcs.CommitInfo, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx := context.Background()

	// An unborn branch has no history yet.
	if _, err := g.exec(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return nil, nil
	}

	output, err := g.exec(ctx, "log",
		"-n", strconv.Itoa(limit),
		"--name-only",
		"--format="+recordSep+"%H"+fieldSep+"%ct"+fieldSep+"%B"+fieldSep)
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	return parseLog(string(output)), nil
}

// parseLog parses the output produced by Log's format string.
func parseLog(output string) []vcs.CommitInfo {
	var commits []vcs.CommitInfo

	for _, rec := range strings.Split(output, recordSep) {
		parts := strings.SplitN(rec, fieldSep, 4)
		if len(parts) < 3 {
			continue
		}

		info := vcs.CommitInfo{
			ID:      parts[0],
			Message: strings.TrimRight(parts[2], "\n"),
		}
		if secs, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			info.Timestamp = time.Unix(secs, 0).UTC()
		}
		if len(parts) == 4 {
			info.Paths = vcs.ParseLines([]byte(parts[3]))
		}

		commits = append(commits, info)
	}

	return commits
}
