// Package repo implements the td task repository.
//
// A repository is a directory holding one JSON record per task under
// tasks/, the pending index (UUIDs of tasks not yet done, in insertion
// order), the short-ID index and a schema version file. Every batch of
// changes is recorded as a single commit in the repository's change log
// (see package vcs).
//
// Typical use:
//
//	r, err := repo.Open(path, repo.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	state, err := r.Load()
//	if err != nil {
//	    return err
//	}
//	tasks, err := state.Tasks([]string{"+work", "and", "not", "flag:blocked"})
//
// Exclusion between writers is by convention only. Open refuses a
// repository with uncommitted changes, which catches a writer that
// crashed mid-batch, but nothing stops two processes from opening the
// same repository at once.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/taskdepot/td/internal/depgraph"
	"github.com/taskdepot/td/internal/vcs"

	// Change log backends register themselves on import.
	_ "github.com/taskdepot/td/internal/vcs/git"
	_ "github.com/taskdepot/td/internal/vcs/journal"
)

// Repository is an open task repository.
type Repository struct {
	root    string
	vcs     vcs.VCS
	logger  *log.Logger
	urgency depgraph.UrgencyConfig
	now     func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithUrgency sets the urgency coefficients used by Load.
func WithUrgency(cfg depgraph.UrgencyConfig) Option {
	return func(r *Repository) {
		r.urgency = cfg
	}
}

// WithClock sets the time source used for urgency.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

func newRepository(root string, v vcs.VCS, opts []Option) *Repository {
	r := &Repository{
		root:    root,
		vcs:     v,
		logger:  log.New(io.Discard, "", 0),
		urgency: depgraph.DefaultUrgencyConfig(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InitOptions configures Init.
type InitOptions struct {
	// Backend selects the change log. Defaults to the journal.
	Backend vcs.Type
}

// Init creates an empty repository at path and records it as the
// initial commit. path must not exist or be an empty directory. Whatever
// Init created is removed again if it fails.
func Init(path string, initOpts InitOptions, opts ...Option) (r *Repository, err error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	backend := initOpts.Backend
	if backend == "" {
		backend = vcs.TypeJournal
	}

	created, err := prepareRoot(root)
	if err != nil {
		return nil, err
	}

	var v vcs.VCS
	defer func() {
		if err == nil {
			return
		}
		if v != nil {
			_ = v.Close()
		}
		cleanupRoot(root, created)
	}()

	v, err = vcs.Init(backend, root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s change log: %w", backend, err)
	}

	files := map[string][]byte{
		VersionFile: []byte(strconv.Itoa(SupportedVersion) + "\n"),
		PendingFile: nil,
		IDsFile:     nil,
	}
	for _, name := range []string{VersionFile, PendingFile, IDsFile} {
		if err = writeFile(filepath.Join(root, name), files[name]); err != nil {
			return nil, err
		}
	}
	if err = os.Mkdir(filepath.Join(root, TasksDir), 0755); err != nil {
		return nil, err
	}

	if err = v.Add([]string{VersionFile, PendingFile, IDsFile}); err != nil {
		return nil, err
	}
	if _, err = v.Commit(context.Background(), vcs.CommitOptions{Message: "Initial commit."}); err != nil {
		return nil, err
	}

	r = newRepository(root, v, opts)
	r.logger.Printf("initialized repository at %s (%s)", root, backend)
	return r, nil
}

// prepareRoot makes sure root exists and is empty. It reports whether the
// directory was created here.
func prepareRoot(root string) (bool, error) {
	entries, err := os.ReadDir(root)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(root, 0755); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	case len(entries) > 0:
		return false, fmt.Errorf("%w: %s", ErrNotEmpty, root)
	}
	return false, nil
}

// cleanupRoot undoes prepareRoot and everything written after it.
func cleanupRoot(root string, created bool) {
	if created {
		_ = os.RemoveAll(root)
		return
	}
	entries, _ := os.ReadDir(root)
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(root, e.Name()))
	}
}

// Open opens the repository at path. It fails with a
// *RepositoryCorruptError when the change log or version file cannot be
// read, ErrDirtyState when the working tree has uncommitted changes and
// *UnsupportedVersionError on a version mismatch.
func Open(path string, opts ...Option) (*Repository, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	v, err := vcs.Open(root)
	if err != nil {
		return nil, corrupt(root, fmt.Errorf("cannot open change log: %w", err))
	}

	r := newRepository(root, v, opts)
	if err := r.verify(); err != nil {
		_ = v.Close()
		return nil, err
	}

	r.logger.Printf("opened repository at %s (%s)", root, v.Name())
	return r, nil
}

// verify runs the dirty and version checks of Open.
func (r *Repository) verify() error {
	statuses, err := r.vcs.Status()
	if err != nil {
		return corrupt(r.root, err)
	}
	if len(statuses) > 0 {
		paths := make([]string, 0, len(statuses))
		for _, s := range statuses {
			paths = append(paths, s.Path)
		}
		return fmt.Errorf("%w: %s", ErrDirtyState, strings.Join(paths, ", "))
	}

	data, err := os.ReadFile(r.path(VersionFile))
	if err != nil {
		return corrupt(r.path(VersionFile), err)
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return corrupt(r.path(VersionFile), err)
	}
	if version != SupportedVersion {
		return &UnsupportedVersionError{Found: version, Supported: SupportedVersion}
	}
	return nil
}

// Root returns the repository root directory.
func (r *Repository) Root() string {
	return r.root
}

// Backend returns the change log backend type.
func (r *Repository) Backend() vcs.Type {
	return r.vcs.Name()
}

// Close releases the change log.
func (r *Repository) Close() error {
	return r.vcs.Close()
}

func (r *Repository) path(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// commit stages paths and records them with title and one line per entry.
func (r *Repository) commit(paths []string, title string, lines []string) (bool, error) {
	if err := r.vcs.Add(paths); err != nil {
		return false, fmt.Errorf("failed to stage changes: %w", err)
	}

	msg := title
	if len(lines) > 0 {
		msg += "\n\n" + strings.Join(lines, "\n")
	}

	committed, err := r.vcs.Commit(context.Background(), vcs.CommitOptions{Message: msg})
	if err != nil {
		return false, fmt.Errorf("failed to commit changes: %w", err)
	}
	if committed {
		r.logger.Printf("committed %q (%d paths)", title, len(paths))
	} else {
		r.logger.Printf("nothing changed, no commit for %q", title)
	}
	return committed, nil
}

// UpdateShortIDs freezes the current pending order into the short-ID
// index. Nothing is committed when the index already matches.
func (r *Repository) UpdateShortIDs() error {
	pending, err := os.ReadFile(r.path(PendingFile))
	if err != nil {
		return corrupt(r.path(PendingFile), err)
	}
	ids, err := os.ReadFile(r.path(IDsFile))
	if err != nil {
		return corrupt(r.path(IDsFile), err)
	}
	if string(pending) == string(ids) {
		return nil
	}

	if err := writeFile(r.path(IDsFile), pending); err != nil {
		return err
	}
	_, err = r.commit([]string{IDsFile}, "Update short IDs", nil)
	return err
}

// Log returns the most recent change log entries, newest first.
func (r *Repository) Log(limit int) ([]vcs.CommitInfo, error) {
	return r.vcs.Log(limit)
}
