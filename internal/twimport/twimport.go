// Package twimport reads tasks exported by Taskwarrior ("task export").
//
// Both export shapes are accepted: a JSON array, and the older stream of
// one object per line with trailing commas. Fields td has no use for are
// kept in the task's Extra map, except id and urgency, which Taskwarrior
// recomputes and td derives on its own. Deleted tasks are skipped.
package twimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/taskdepot/td/internal/repo"
	"github.com/taskdepot/td/internal/task"
)

// Importer converts Taskwarrior export data.
type Importer struct {
	logger *log.Logger
}

// New returns an Importer logging to logger, which may be nil.
func New(logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Importer{logger: logger}
}

// Read parses an export and returns the tasks it describes in input
// order.
func (im *Importer) Read(r io.Reader) ([]*task.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	objects, err := split(data)
	if err != nil {
		return nil, err
	}

	var tasks []*task.Task
	for i, obj := range objects {
		t, err := im.convert(obj)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		if t != nil {
			tasks = append(tasks, t)
		}
	}

	im.logger.Printf("read %d Taskwarrior tasks, imported %d", len(objects), len(tasks))
	return tasks, nil
}

// split returns the raw objects of either export shape.
func split(data []byte) ([]map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var objects []map[string]json.RawMessage
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, fmt.Errorf("invalid export: %w", err)
		}
		return objects, nil
	}

	var objects []map[string]json.RawMessage
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), ",")
		if line == "" {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("line %d: invalid export: %w", n+1, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// convert maps one exported object, returning nil for deleted tasks.
func (im *Importer) convert(obj map[string]json.RawMessage) (*task.Task, error) {
	t := &task.Task{ID: task.NoID}
	extra := make(map[string]any)

	for key, raw := range obj {
		var err error
		switch key {
		case "id", "urgency":
		case "status":
			var status string
			if err = json.Unmarshal(raw, &status); err != nil {
				break
			}
			switch status {
			case "deleted":
				return nil, nil
			case "completed":
				t.Completed = true
			case "pending", "waiting", "recurring":
			default:
				return nil, fmt.Errorf("unknown status %q", status)
			}
		case "description":
			err = json.Unmarshal(raw, &t.Text)
		case "uuid":
			err = json.Unmarshal(raw, &t.UUID)
		case "entry":
			t.DateCreated, err = timestamp(raw)
		case "end":
			t.DateCompleted, err = timestamp(raw)
		case "due":
			t.DateDue, err = timestamp(raw)
		case "scheduled":
			t.DateScheduled, err = timestamp(raw)
		case "tags":
			err = addTags(t, raw)
		case "depends":
			err = addDependencies(t, raw)
		default:
			var v any
			err = json.Unmarshal(raw, &v)
			extra[key] = v
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
	}

	if t.UUID == "" {
		return nil, fmt.Errorf("missing uuid")
	}
	if err := (task.DependencyID{}).Validate(t.UUID); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		t.Extra = extra
	}
	return t, nil
}

func timestamp(raw json.RawMessage) (*time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	ts, err := task.ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func addTags(t *task.Task, raw json.RawMessage) error {
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return err
	}
	for _, tag := range tags {
		if err := t.Tags.Add(tag); err != nil {
			return err
		}
	}
	return nil
}

// addDependencies accepts the comma-separated string of Taskwarrior 2.x
// and the array of later versions.
func addDependencies(t *task.Task, raw json.RawMessage) error {
	var deps []string
	if err := json.Unmarshal(raw, &deps); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return err
		}
		deps = strings.Split(s, ",")
	}
	for _, dep := range deps {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if err := t.Dependencies.Add(dep); err != nil {
			return err
		}
	}
	return nil
}

// Changes turns imported tasks into a repository batch.
func Changes(tasks []*task.Task) []repo.Change {
	changes := make([]repo.Change, 0, len(tasks))
	for _, t := range tasks {
		changes = append(changes, repo.Write{Task: t})
	}
	return changes
}
