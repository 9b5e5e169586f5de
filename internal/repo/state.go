package repo

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/taskdepot/td/internal/depgraph"
	"github.com/taskdepot/td/internal/filter"
	"github.com/taskdepot/td/internal/task"
)

// State is a snapshot of the repository taken by Load. Its tasks carry
// the derived fields (short IDs, blocked, blocking, dependents, urgency)
// computed for that snapshot.
//
// A State may be read concurrently. It is single-use for writing: after
// Modify, every further call on it fails with ErrStateModified.
type State struct {
	repo *Repository

	pending []string
	tasks   map[string]*task.Task
	ids     []string
	shortID map[string]int

	modified bool
}

// Load reads the indexes and every pending record, then resolves the
// dependency graph and urgency.
func (r *Repository) Load() (*State, error) {
	ids, err := readList(r.path(IDsFile))
	if err != nil {
		return nil, corrupt(r.path(IDsFile), err)
	}

	// tasks/ vanishes from a git checkout while it is empty
	if err := os.MkdirAll(r.path(TasksDir), 0755); err != nil {
		return nil, err
	}

	pending, err := readList(r.path(PendingFile))
	if err != nil {
		return nil, corrupt(r.path(PendingFile), err)
	}

	s := &State{
		repo:    r,
		tasks:   make(map[string]*task.Task, len(pending)),
		ids:     ids,
		shortID: make(map[string]int, len(ids)),
	}

	// Later lines win, so a UUID listed twice keeps its last position.
	for i, id := range ids {
		s.shortID[id] = i
	}

	loaded := make([]*task.Task, 0, len(pending))
	for _, id := range pending {
		if _, dup := s.tasks[id]; dup {
			r.logger.Printf("warning: %s listed twice in pending, ignoring repeat", id)
			continue
		}

		t, err := r.readRecord(id)
		if err != nil {
			return nil, err
		}
		t.Completed = false
		if n, ok := s.shortID[id]; ok {
			t.ID = n
		}

		s.pending = append(s.pending, id)
		s.tasks[id] = t
		loaded = append(loaded, t)
	}

	depgraph.Resolve(loaded, r.urgency, r.now())

	r.logger.Printf("loaded %d pending tasks", len(loaded))
	return s, nil
}

// readRecord loads tasks/<id>. Completed is left for the caller to set.
func (r *Repository) readRecord(id string) (*task.Task, error) {
	path := r.path(recordPath(id))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, corrupt(path, err)
	}
	t, err := task.UnmarshalRecord(id, data)
	if err != nil {
		return nil, corrupt(path, err)
	}
	return t, nil
}

func (r *Repository) recordExists(id string) (bool, error) {
	_, err := os.Stat(r.path(recordPath(id)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Tasks returns the pending tasks matching the filter expression, in
// pending order. An empty expression matches every pending task.
func (s *State) Tasks(filterArgs []string) ([]*task.Task, error) {
	if s.modified {
		return nil, ErrStateModified
	}

	expr, err := filter.Parse(filterArgs)
	if err != nil {
		return nil, err
	}

	var matched []*task.Task
	for _, id := range s.pending {
		t := s.tasks[id]
		if expr.Match(t) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// Get returns the task with the given UUID. Pending tasks come from the
// snapshot; completed tasks are read from their record and carry no
// derived data.
func (s *State) Get(id string) (*task.Task, error) {
	if s.modified {
		return nil, ErrStateModified
	}

	if t, ok := s.tasks[id]; ok {
		return t, nil
	}

	exists, err := s.repo.recordExists(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{UUID: id}
	}

	t, err := s.repo.readRecord(id)
	if err != nil {
		return nil, err
	}
	t.Completed = true
	if n, ok := s.shortID[id]; ok {
		t.ID = n
	}
	return t, nil
}

// Pending returns the number of pending tasks in the snapshot.
func (s *State) Pending() int {
	return len(s.pending)
}

// Change is one operation of a Modify batch: Write or Delete.
type Change interface {
	describe() string
}

// Write stores Task. Its Completed flag decides whether it joins or
// leaves the pending index.
type Write struct {
	Task *task.Task
}

func (w Write) describe() string {
	return "Update task " + w.Task.UUID
}

// Delete removes the record of UUID and drops it from the pending index.
type Delete struct {
	UUID string
}

func (d Delete) describe() string {
	return "Delete task " + d.UUID
}

// Modify applies changes in order and records them as a single commit
// titled title. Every change is validated before anything is written; a
// failure after that point leaves uncommitted files that the next Open
// reports as ErrDirtyState.
//
// The State cannot be used again afterwards, whatever the outcome.
func (s *State) Modify(changes []Change, title string) error {
	if s.modified {
		return ErrStateModified
	}

	if err := s.validate(changes); err != nil {
		return err
	}

	s.modified = true
	r := s.repo

	pending := &uuidList{items: slices.Clone(s.pending)}
	ids := &uuidList{items: slices.Clone(s.ids)}

	var staged []string
	var lines []string

	for _, c := range changes {
		switch c := c.(type) {
		case Write:
			t := c.Task
			data, err := task.MarshalRecord(t)
			if err != nil {
				return err
			}
			if err := writeFile(r.path(recordPath(t.UUID)), data); err != nil {
				return err
			}
			staged = append(staged, recordPath(t.UUID))

			inPending := pending.contains(t.UUID)
			switch {
			case t.Completed && inPending:
				pending.remove(t.UUID)
			case !t.Completed && !inPending:
				pending.add(t.UUID)
				if !ids.contains(t.UUID) {
					ids.add(t.UUID)
				}
			}
			r.logger.Printf("wrote task %s", t.UUID)

		case Delete:
			if err := os.Remove(r.path(recordPath(c.UUID))); err != nil {
				return fmt.Errorf("failed to delete task %s: %w", c.UUID, err)
			}
			staged = append(staged, recordPath(c.UUID))
			pending.remove(c.UUID)
			r.logger.Printf("deleted task %s", c.UUID)
		}

		lines = append(lines, c.describe())
	}

	if pending.dirty {
		if err := writeFile(r.path(PendingFile), encodeList(pending.items)); err != nil {
			return err
		}
		staged = append(staged, PendingFile)
	}
	if ids.dirty {
		if err := writeFile(r.path(IDsFile), encodeList(ids.items)); err != nil {
			return err
		}
		staged = append(staged, IDsFile)
	}

	_, err := r.commit(staged, title, lines)
	return err
}

// validate checks a whole batch before Modify touches the disk.
func (s *State) validate(changes []Change) error {
	// exists tracks which records will be present as the batch proceeds
	exists := make(map[string]bool)
	present := func(id string) (bool, error) {
		if v, ok := exists[id]; ok {
			return v, nil
		}
		return s.repo.recordExists(id)
	}

	for _, c := range changes {
		switch c := c.(type) {
		case Write:
			t := c.Task
			if t == nil {
				return fmt.Errorf("write of nil task")
			}
			if err := (task.DependencyID{}).Validate(t.UUID); err != nil {
				return fmt.Errorf("invalid task uuid: %w", err)
			}
			if err := validateTask(t); err != nil {
				return err
			}
			if t.Stored() {
				ok, err := present(t.UUID)
				if err != nil {
					return err
				}
				if !ok {
					return &NotFoundError{UUID: t.UUID}
				}
			}
			exists[t.UUID] = true

		case Delete:
			ok, err := present(c.UUID)
			if err != nil {
				return err
			}
			if !ok {
				return &NotFoundError{UUID: c.UUID}
			}
			exists[c.UUID] = false

		case nil:
			return fmt.Errorf("nil change")

		default:
			return fmt.Errorf("unknown change type %T", c)
		}
	}
	return nil
}

// validateTask re-runs the collection validators, which matters for
// tasks assembled by code rather than through Add.
func validateTask(t *task.Task) error {
	for tag := range t.Tags.All() {
		if err := (task.TagName{}).Validate(tag); err != nil {
			return err
		}
	}
	for dep := range t.Dependencies.All() {
		if err := (task.DependencyID{}).Validate(dep); err != nil {
			return err
		}
	}
	return t.Validate()
}
