package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrDirtyState is returned by Open when the repository holds changes
	// that were never committed, typically left by a crashed writer.
	// Recovery is manual.
	ErrDirtyState = errors.New("repository has uncommitted changes")

	// ErrStateModified is returned when a State is used after Modify.
	// Callers must Load a fresh State.
	ErrStateModified = errors.New("repository state already modified, reload required")

	// ErrNotEmpty is returned by Init for an existing, non-empty directory.
	ErrNotEmpty = errors.New("directory exists and is not empty")
)

// RepositoryCorruptError reports a repository whose change log, index or
// record files cannot be read.
type RepositoryCorruptError struct {
	Path string
	Err  error
}

func (e *RepositoryCorruptError) Error() string {
	return fmt.Sprintf("repository corrupt: %s: %v", e.Path, e.Err)
}

func (e *RepositoryCorruptError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError reports a repository written with a schema
// version this build cannot read.
type UnsupportedVersionError struct {
	Found     int
	Supported int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported repository version %d (supported: %d)", e.Found, e.Supported)
}

// NotFoundError reports a change against a UUID that has no record.
type NotFoundError struct {
	UUID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.UUID)
}

func corrupt(path string, err error) error {
	return &RepositoryCorruptError{Path: path, Err: err}
}
