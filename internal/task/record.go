package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// record is the on-disk shape of a task. Key order matches field order;
// every field is omitted when empty.
type record struct {
	Text          string         `json:"text,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Depends       []string       `json:"depends,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
	LegacyExtra   map[string]any `json:"tw_extra,omitempty"`
	DateCreated   *time.Time     `json:"date_created,omitempty"`
	DateCompleted *time.Time     `json:"date_completed,omitempty"`
	DateDue       *time.Time     `json:"date_due,omitempty"`
	DateScheduled *time.Time     `json:"date_scheduled,omitempty"`
}

// MarshalRecord serializes the persistent fields of t. UUID, completion
// state and all derived fields live outside the record.
func MarshalRecord(t *Task) ([]byte, error) {
	rec := record{
		Text:          t.Text,
		Tags:          t.Tags.Items(),
		Depends:       t.Dependencies.Items(),
		Extra:         t.Extra,
		DateCreated:   utc(t.DateCreated),
		DateCompleted: utc(t.DateCompleted),
		DateDue:       utc(t.DateDue),
		DateScheduled: utc(t.DateScheduled),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(&rec); err != nil {
		return nil, fmt.Errorf("failed to encode task %s: %w", t.UUID, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalRecord decodes a record written by MarshalRecord for the task
// identified by id. Tags and dependencies go through the same validation
// as interactive edits.
func UnmarshalRecord(id string, data []byte) (*Task, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}

	t := &Task{
		UUID:          id,
		ID:            NoID,
		Text:          rec.Text,
		Extra:         rec.Extra,
		DateCreated:   utc(rec.DateCreated),
		DateCompleted: utc(rec.DateCompleted),
		DateDue:       utc(rec.DateDue),
		DateScheduled: utc(rec.DateScheduled),
		stored:        true,
	}
	if t.Extra == nil && rec.LegacyExtra != nil {
		t.Extra = rec.LegacyExtra
	}
	for _, tag := range rec.Tags {
		if err := t.Tags.Add(tag); err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
	}
	for _, dep := range rec.Depends {
		if err := t.Dependencies.Add(dep); err != nil {
			return nil, fmt.Errorf("task %s: %w", id, err)
		}
	}
	return t, nil
}

func utc(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	u := ts.UTC()
	return &u
}
