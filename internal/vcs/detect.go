package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
)

// DetectionResult contains information about the detected change log
type DetectionResult struct {
	// Type is the detected backend type
	Type Type

	// RepoRoot is the repository root directory path
	RepoRoot string

	// Marker is the absolute path of the file or directory that
	// identified the backend
	Marker string
}

// Detect identifies the change log backend for a given directory.
//
// Unlike source trees, a td repository is always rooted exactly at the
// given path: parent directories are not searched, so a repository kept
// inside some unrelated git checkout is never mistaken for it.
//
// Backends are probed in sorted type order. Returns ErrNotInVCS if no
// registered marker is present.
func Detect(path string) (*DetectionResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	for _, t := range RegisteredTypes() {
		b, _ := getBackend(t)
		if b.Marker == "" {
			continue
		}

		marker := filepath.Join(absPath, b.Marker)
		if _, err := os.Stat(marker); err == nil {
			return &DetectionResult{
				Type:     t,
				RepoRoot: absPath,
				Marker:   marker,
			}, nil
		}
	}

	return nil, ErrNotInVCS
}

// IsGitAvailable checks if the git command is available on the system
func IsGitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
