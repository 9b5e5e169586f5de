// Package task defines the task entity, its validated collections, the
// modification language used to edit tasks, and the on-disk record codec.
package task

import (
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// NoID marks a task that has no short ID in the current snapshot.
const NoID = -1

// TagDelimiter separates the levels of a hierarchical tag.
const TagDelimiter = "."

// TagName validates tag names: non-empty, no whitespace.
type TagName struct{}

// Validate implements Validator.
func (TagName) Validate(tag string) error {
	if tag == "" {
		return &InvalidTagNameError{Tag: tag}
	}
	for _, r := range tag {
		if unicode.IsSpace(r) {
			return &InvalidTagNameError{Tag: tag, Char: r}
		}
	}
	return nil
}

// DependencyID validates dependency references as UUID strings.
type DependencyID struct{}

// Validate implements Validator.
func (DependencyID) Validate(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &InvalidDependencyIDError{ID: id, Reason: err.Error()}
	}
	return nil
}

// Tags is the ordered tag set of a task.
type Tags = OrderedSet[string, TagName]

// Dependencies is the ordered set of UUIDs a task depends on.
type Dependencies = OrderedSet[string, DependencyID]

// Task is a single tracked item. Fields below the derived marker are
// computed by the repository for each snapshot and never persisted.
type Task struct {
	UUID string
	ID   int
	Text string

	Tags         Tags
	Dependencies Dependencies

	// Completed is authoritative only through the pending index: the
	// repository sets it on load and consults it on write.
	Completed bool

	DateCreated   *time.Time
	DateCompleted *time.Time
	DateDue       *time.Time
	DateScheduled *time.Time

	// Extra holds foreign fields kept for round-trip fidelity with
	// imported data.
	Extra map[string]any

	// derived
	Dependents []string
	Blocked    bool
	Blocking   bool
	Urgency    float64

	stored bool
}

// New returns a pending task with a fresh UUID and creation date.
func New() *Task {
	now := time.Now().UTC()
	return &Task{
		UUID:        uuid.NewString(),
		ID:          NoID,
		DateCreated: &now,
	}
}

// Stored reports whether the task was loaded from a repository record.
func (t *Task) Stored() bool {
	return t.stored
}

// HasID reports whether the task has a short ID in its snapshot.
func (t *Task) HasID() bool {
	return t.ID != NoID
}

// HasTag reports whether the task carries name or any tag below it in the
// hierarchy, so "work" matches "work" and "work.urgent" but not "workshop".
func (t *Task) HasTag(name string) bool {
	for tag := range t.Tags.All() {
		if tag == name || strings.HasPrefix(tag, name+TagDelimiter) {
			return true
		}
	}
	return false
}

// DependsOn reports whether id is one of the task's dependencies.
func (t *Task) DependsOn(id string) bool {
	return t.Dependencies.Contains(id)
}

// Clone returns a deep copy suitable for editing. Snapshot-derived fields
// are reset since they are only meaningful inside the snapshot they came
// from.
func (t *Task) Clone() *Task {
	c := &Task{
		UUID:          t.UUID,
		ID:            t.ID,
		Text:          t.Text,
		Tags:          t.Tags.clone(),
		Dependencies:  t.Dependencies.clone(),
		Completed:     t.Completed,
		DateCreated:   cloneTime(t.DateCreated),
		DateCompleted: cloneTime(t.DateCompleted),
		DateDue:       cloneTime(t.DateDue),
		DateScheduled: cloneTime(t.DateScheduled),
		Extra:         maps.Clone(t.Extra),
		stored:        t.stored,
	}
	return c
}

// SortedTags returns the task's tags in lexical order.
func (t *Task) SortedTags() []string {
	tags := t.Tags.Items()
	slices.Sort(tags)
	return tags
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	c := *ts
	return &c
}
