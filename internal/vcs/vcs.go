// Package vcs provides the change log that backs a td repository.
//
// A change log records batches of file changes inside the repository
// directory as atomic, auditable commits. Two backends exist:
//
//   - internal/vcs/journal: a content-addressed sqlite journal kept in
//     .td/journal.db (the default)
//   - internal/vcs/git: a plain git repository, driven through the git
//     binary
//
// Backends register themselves on import:
//
//	import (
//	    _ "github.com/taskdepot/td/internal/vcs/git"
//	    _ "github.com/taskdepot/td/internal/vcs/journal"
//	)
//
//	v, err := vcs.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer v.Close()
//
//	if err := v.Add([]string{"pending"}); err != nil {
//	    return err
//	}
//	committed, err := v.Commit(ctx, vcs.CommitOptions{Message: "Update"})
//
// The change log is not a lock. It detects uncommitted changes left by a
// crashed writer but does nothing to keep two writers apart.
package vcs

import (
	"context"
	"strings"
	"time"
)

// Type represents the change log backend type
type Type string

const (
	// TypeGit stores history in a git repository
	TypeGit Type = "git"

	// TypeJournal stores history in a sqlite journal
	TypeJournal Type = "journal"
)

// String returns the string representation of the backend type
func (t Type) String() string {
	return string(t)
}

// VCS defines the change log operations the repository layer relies on.
type VCS interface {
	// Name returns the backend type
	Name() Type

	// RepoRoot returns the repository root directory path
	RepoRoot() string

	// HasChanges returns true if the working tree differs from the last
	// commit, including untracked files. If paths are specified, only
	// those paths are checked.
	HasChanges(paths ...string) (bool, error)

	// Status returns every path that differs from the last commit.
	// If paths are specified, only those paths are checked.
	Status(paths ...string) ([]FileStatus, error)

	// Add stages paths for the next commit. A path that no longer exists
	// is staged as a removal.
	Add(paths []string) error

	// Commit records all staged changes as one transaction. It returns
	// false without error when nothing staged differs from the previous
	// commit and AllowEmpty is not set.
	Commit(ctx context.Context, opts CommitOptions) (bool, error)

	// Log returns the most recent commits, newest first.
	Log(limit int) ([]CommitInfo, error)

	// Close releases backend resources.
	Close() error
}

// FileStatus represents the status of a file in the working directory
type FileStatus struct {
	// Path is the file path relative to repository root
	Path string

	// Status is the working directory status
	Status StatusCode

	// StagedCode is the staging area status
	StagedCode StatusCode
}

// StatusCode represents file status codes
type StatusCode string

const (
	StatusUnmodified StatusCode = " " // No changes
	StatusModified   StatusCode = "M" // Modified
	StatusAdded      StatusCode = "A" // Added/new file
	StatusDeleted    StatusCode = "D" // Deleted
	StatusRenamed    StatusCode = "R" // Renamed
	StatusCopied     StatusCode = "C" // Copied
	StatusUntracked  StatusCode = "?" // Untracked
	StatusIgnored    StatusCode = "!" // Ignored
	StatusConflict   StatusCode = "U" // Unmerged/conflict
)

// CommitOptions configures a commit operation
type CommitOptions struct {
	// Message is the commit message (required)
	Message string

	// Author overrides the commit author (optional, format: "Name <email>")
	Author string

	// AllowEmpty records a commit even when nothing changed
	AllowEmpty bool
}

// CommitInfo describes one recorded commit
type CommitInfo struct {
	// ID is the commit hash (git) or journal sequence number
	ID string

	// Message is the full commit message
	Message string

	// Timestamp is when the commit was recorded
	Timestamp time.Time

	// Paths lists the files changed by the commit, when known
	Paths []string
}

// Title returns the first line of the commit message.
func (c CommitInfo) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return title
}
