package vcs

import "errors"

// Common errors returned by change log operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrNotInVCS) {
//	    // Handle a directory that holds no change log
//	}
var (
	// ErrNotInVCS is returned when the directory holds no change log of
	// any registered backend.
	ErrNotInVCS = errors.New("not a change log repository")

	// ErrVCSNotAvailable is returned when the backend's tooling (the git
	// binary) is not installed or not in PATH.
	ErrVCSNotAvailable = errors.New("VCS binary not available")

	// ErrUnknownType is returned for a backend type nobody registered.
	ErrUnknownType = errors.New("unknown change log type")

	// ErrAlreadyInitialized is returned when Init finds an existing
	// change log.
	ErrAlreadyInitialized = errors.New("change log already initialized")

	// ErrEmptyMessage is returned by Commit without a message.
	ErrEmptyMessage = errors.New("commit message is required")

	// ErrDirtyWorkspace is returned when an operation requires
	// a clean working tree but there are uncommitted changes.
	ErrDirtyWorkspace = errors.New("working tree has uncommitted changes")
)

// IsFatal returns true if the error indicates a non-recoverable state
// that requires manual intervention or re-initialization.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// No change log means we can't do anything
	if errors.Is(err, ErrNotInVCS) {
		return true
	}

	// Binary not available means we can't execute commands
	if errors.Is(err, ErrVCSNotAvailable) {
		return true
	}

	return false
}
