package repo

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdepot/td/internal/depgraph"
	"github.com/taskdepot/td/internal/task"
)

// ProblemKind classifies a Check finding.
type ProblemKind string

const (
	ProblemMissingRecord      ProblemKind = "missing-record"
	ProblemCorruptRecord      ProblemKind = "corrupt-record"
	ProblemInvalidEntry       ProblemKind = "invalid-entry"
	ProblemDuplicatePending   ProblemKind = "duplicate-pending"
	ProblemStrayFile          ProblemKind = "stray-file"
	ProblemDanglingDependency ProblemKind = "dangling-dependency"
	ProblemDependencyCycle    ProblemKind = "dependency-cycle"
)

// Problem is a single inconsistency found by Check.
type Problem struct {
	Kind   ProblemKind
	UUID   string
	Detail string
}

func (p Problem) String() string {
	if p.UUID == "" {
		return fmt.Sprintf("%s: %s", p.Kind, p.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", p.Kind, p.UUID, p.Detail)
}

// CheckReport is the result of Check.
type CheckReport struct {
	Records  int
	Pending  int
	Problems []Problem
}

// OK reports whether Check found nothing wrong.
func (c *CheckReport) OK() bool {
	return len(c.Problems) == 0
}

func (c *CheckReport) add(kind ProblemKind, id, format string, args ...any) {
	c.Problems = append(c.Problems, Problem{Kind: kind, UUID: id, Detail: fmt.Sprintf(format, args...)})
}

// Check verifies the repository without modifying it: every record
// decodes, every pending entry is a unique UUID with a record, pending
// dependencies point at existing records and contain no cycle. Records
// missing from the pending index are completed tasks and are fine, as are
// short-ID entries of deleted tasks.
func (r *Repository) Check() (*CheckReport, error) {
	report := &CheckReport{}

	entries, err := os.ReadDir(r.path(TasksDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, corrupt(r.path(TasksDir), err)
	}

	records := make(map[string]*task.Task, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isUUID(name) {
			report.add(ProblemStrayFile, "", "%s/%s", TasksDir, name)
			continue
		}
		report.Records++

		t, err := r.readRecord(name)
		if err != nil {
			var ce *RepositoryCorruptError
			if errors.As(err, &ce) {
				err = ce.Err
			}
			report.add(ProblemCorruptRecord, name, "%v", err)
			continue
		}
		records[name] = t
	}

	pending, err := readList(r.path(PendingFile))
	if err != nil {
		return nil, corrupt(r.path(PendingFile), err)
	}

	seen := make(map[string]bool, len(pending))
	var pendingTasks []*task.Task
	for _, id := range pending {
		switch {
		case !isUUID(id):
			report.add(ProblemInvalidEntry, "", "%s: %q is not a UUID", PendingFile, id)
			continue
		case seen[id]:
			report.add(ProblemDuplicatePending, id, "listed more than once in %s", PendingFile)
			continue
		}
		seen[id] = true
		report.Pending++

		t, ok := records[id]
		if !ok {
			if !slices.ContainsFunc(report.Problems, func(p Problem) bool { return p.UUID == id }) {
				report.add(ProblemMissingRecord, id, "pending but %s is missing", recordPath(id))
			}
			continue
		}
		pendingTasks = append(pendingTasks, t)
	}

	ids, err := readList(r.path(IDsFile))
	if err != nil {
		return nil, corrupt(r.path(IDsFile), err)
	}
	for _, id := range ids {
		if !isUUID(id) {
			report.add(ProblemInvalidEntry, "", "%s: %q is not a UUID", IDsFile, id)
		}
	}

	for _, t := range pendingTasks {
		for dep := range t.Dependencies.All() {
			if _, ok := records[dep]; !ok {
				report.add(ProblemDanglingDependency, t.UUID, "depends on unknown task %s", dep)
			}
		}
	}

	if cycle := depgraph.FindCycle(pendingTasks); cycle != nil {
		report.add(ProblemDependencyCycle, cycle[0], "%s", strings.Join(cycle, " -> "))
	}

	r.logger.Printf("check: %d records, %d pending, %d problems", report.Records, report.Pending, len(report.Problems))
	return report, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
