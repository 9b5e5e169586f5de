// Package journal provides a sqlite-backed implementation of the change log.
//
// The journal lives in .td/journal.db inside the repository root and keeps
// content-addressed snapshots of every committed file:
//
//   - blobs: file contents keyed by sha256
//   - tree: the committed state, one row per tracked path
//   - commits: one row per recorded batch
//   - changes: the paths each commit touched, with their new blob (NULL
//     for removals)
//
// A commit updates all four tables in one sqlite transaction, so a batch
// is either fully recorded or not at all. Anything on disk that differs
// from tree is reported by Status as uncommitted.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/taskdepot/td/internal/vcs"
)

const (
	// Dir is the journal's private directory, relative to the repository
	// root. Status never reports anything below it.
	Dir = ".td"

	// FileName is the journal database name inside Dir.
	FileName = "journal.db"

	schemaVersion = "1"
)

// Journal implements vcs.VCS on top of a sqlite database.
type Journal struct {
	repoRoot string
	conn     *sql.DB

	mu     sync.Mutex
	staged map[string]stagedFile
}

// stagedFile is a snapshot taken by Add. A nil content means removal.
type stagedFile struct {
	content []byte
}

func init() {
	vcs.Register(vcs.TypeJournal, vcs.Backend{
		Open: func(root string) (vcs.VCS, error) {
			j, err := Open(root)
			if err != nil {
				return nil, err
			}
			return j, nil
		},
		Init: func(root string) (vcs.VCS, error) {
			j, err := Init(root)
			if err != nil {
				return nil, err
			}
			return j, nil
		},
		Marker: filepath.Join(Dir, FileName),
	})
}

// Path returns the journal database path for a repository root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Open attaches to the journal of the repository rooted at root.
func Open(root string) (*Journal, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(Path(absRoot)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, vcs.ErrNotInVCS
		}
		return nil, err
	}

	j, err := open(absRoot)
	if err != nil {
		return nil, err
	}

	var version string
	err = j.conn.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to read journal schema version: %w", err)
	}
	if version != schemaVersion {
		_ = j.Close()
		return nil, fmt.Errorf("unsupported journal schema version %q (want %q)", version, schemaVersion)
	}

	return j, nil
}

// Init creates an empty journal for the existing directory root.
func Init(root string) (*Journal, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absRoot); err != nil {
		return nil, err
	}
	if _, err := os.Stat(Path(absRoot)); err == nil {
		return nil, vcs.ErrAlreadyInitialized
	}

	if err := os.MkdirAll(filepath.Join(absRoot, Dir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j, err := open(absRoot)
	if err != nil {
		return nil, err
	}

	if err := j.initSchema(context.Background()); err != nil {
		_ = j.Close()
		return nil, err
	}

	return j, nil
}

// open opens the database file, creating it if necessary.
func open(root string) (*Journal, error) {
	// Per-connection pragmas go in the DSN so every pooled connection
	// gets them.
	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(full)", Path(root))
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	conn.SetMaxOpenConns(1)

	// journal_mode is persistent; set it once on the file
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Journal{
		repoRoot: root,
		conn:     conn,
		staged:   make(map[string]stagedFile),
	}, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blobs (
		hash TEXT PRIMARY KEY,  -- hex sha256 of content
		content BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL  -- unix nanoseconds
	);

	CREATE TABLE IF NOT EXISTS changes (
		commit_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		hash TEXT,  -- NULL when the path was removed
		PRIMARY KEY (commit_id, path),
		FOREIGN KEY (commit_id) REFERENCES commits(id),
		FOREIGN KEY (hash) REFERENCES blobs(hash)
	);

	CREATE TABLE IF NOT EXISTS tree (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		FOREIGN KEY (hash) REFERENCES blobs(hash)
	);

	CREATE INDEX IF NOT EXISTS idx_changes_path ON changes(path);

	INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', '` + schemaVersion + `');
	`

	if _, err := j.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return nil
}

// Name returns the VCS type (journal)
func (j *Journal) Name() vcs.Type {
	return vcs.TypeJournal
}

// RepoRoot returns the repository root directory path
func (j *Journal) RepoRoot() string {
	return j.repoRoot
}

// Close checkpoints the WAL and closes the database.
func (j *Journal) Close() error {
	if j.conn == nil {
		return nil
	}

	if _, err := j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint journal WAL: %v\n", err)
	}

	if err := j.conn.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.conn = nil
	return nil
}
