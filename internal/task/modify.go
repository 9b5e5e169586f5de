package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ModKind identifies a single field edit.
type ModKind int

const (
	ModText ModKind = iota
	ModTagAdd
	ModTagDel
	ModTagSet
	ModDepAdd
	ModDepDel
	ModDepSet
	ModCreated
	ModCompleted
	ModDue
	ModScheduled
)

// String returns the modification keyword.
func (k ModKind) String() string {
	switch k {
	case ModText:
		return "text"
	case ModTagAdd:
		return "tag+"
	case ModTagDel:
		return "tag-"
	case ModTagSet:
		return "tag"
	case ModDepAdd:
		return "dep+"
	case ModDepDel:
		return "dep-"
	case ModDepSet:
		return "depends"
	case ModCreated:
		return "created"
	case ModCompleted:
		return "completed"
	case ModDue:
		return "due"
	case ModScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// Modification is one parsed edit. Value is used by single-valued kinds,
// Values by the set kinds and Time by the date kinds (nil clears).
// ModCompleted also sets Completed: a time completes the task, nil
// reopens it.
type Modification struct {
	Kind   ModKind
	Value  string
	Values []string
	Time   *time.Time
}

// timestampLayouts are tried in order by ParseTimestamp. Layouts without
// a zone are interpreted in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405Z",
}

// ParseTimestamp parses an ISO-8601-like timestamp and returns it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		loc := time.Local
		if layout == "20060102T150405Z" {
			loc = time.UTC
		}
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

var naturalDates = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDate accepts everything ParseTimestamp does plus natural language
// such as "tomorrow" or "next friday", resolved relative to now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	if ts, err := ParseTimestamp(s); err == nil {
		return ts, nil
	}
	r, err := naturalDates.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return r.Time.UTC(), nil
}

// ParseModifications turns command-line words into a modification list.
// Bare words are joined into a single text replacement; unknown
// "prefix:value" words count as bare words.
func ParseModifications(args []string, now time.Time) ([]Modification, error) {
	var mods []Modification
	var words []string

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "+") && len(arg) > 1:
			mods = append(mods, Modification{Kind: ModTagAdd, Value: arg[1:]})
			continue
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			mods = append(mods, Modification{Kind: ModTagDel, Value: arg[1:]})
			continue
		}

		key, val, ok := strings.Cut(arg, ":")
		if !ok {
			words = append(words, arg)
			continue
		}

		switch strings.ToLower(key) {
		case "text":
			mods = append(mods, Modification{Kind: ModText, Value: val})
		case "tag+":
			mods = append(mods, Modification{Kind: ModTagAdd, Value: val})
		case "tag-":
			mods = append(mods, Modification{Kind: ModTagDel, Value: val})
		case "tag", "tags":
			mods = append(mods, Modification{Kind: ModTagSet, Values: splitList(val)})
		case "dep+":
			mods = append(mods, Modification{Kind: ModDepAdd, Value: val})
		case "dep-":
			mods = append(mods, Modification{Kind: ModDepDel, Value: val})
		case "depends", "dep":
			mods = append(mods, Modification{Kind: ModDepSet, Values: splitList(val)})
		case "created", "completed", "due", "scheduled":
			mod := Modification{Kind: dateKinds[strings.ToLower(key)]}
			if val != "" {
				ts, err := ParseDate(val, now)
				if err != nil {
					return nil, err
				}
				mod.Time = &ts
			}
			mods = append(mods, mod)
		default:
			words = append(words, arg)
		}
	}

	if len(words) > 0 {
		mods = append(mods, Modification{Kind: ModText, Value: strings.Join(words, " ")})
	}
	return mods, nil
}

var dateKinds = map[string]ModKind{
	"created":   ModCreated,
	"completed": ModCompleted,
	"due":       ModDue,
	"scheduled": ModScheduled,
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Apply performs mods on t. Every modification is validated against a
// copy first, so t is left untouched when any of them fails.
func (t *Task) Apply(mods []Modification) error {
	c := t.Clone()
	for _, mod := range mods {
		if err := c.apply(mod); err != nil {
			return err
		}
	}

	t.Text = c.Text
	t.Completed = c.Completed
	t.Tags = c.Tags
	t.Dependencies = c.Dependencies
	t.DateCreated = c.DateCreated
	t.DateCompleted = c.DateCompleted
	t.DateDue = c.DateDue
	t.DateScheduled = c.DateScheduled
	return nil
}

func (t *Task) apply(mod Modification) error {
	switch mod.Kind {
	case ModText:
		t.Text = mod.Value
	case ModTagAdd:
		return t.Tags.Add(mod.Value)
	case ModTagDel:
		t.Tags.Remove(mod.Value)
	case ModTagSet:
		var tags Tags
		for _, tag := range mod.Values {
			if err := tags.Add(tag); err != nil {
				return err
			}
		}
		t.Tags = tags
	case ModDepAdd:
		return t.addDependency(mod.Value)
	case ModDepDel:
		t.Dependencies.Remove(mod.Value)
	case ModDepSet:
		t.Dependencies.Clear()
		for _, dep := range mod.Values {
			if err := t.addDependency(dep); err != nil {
				return err
			}
		}
	case ModCreated:
		t.DateCreated = cloneTime(mod.Time)
	case ModCompleted:
		t.DateCompleted = cloneTime(mod.Time)
		t.Completed = mod.Time != nil
	case ModDue:
		t.DateDue = cloneTime(mod.Time)
	case ModScheduled:
		t.DateScheduled = cloneTime(mod.Time)
	default:
		return fmt.Errorf("invalid modification kind: %d", mod.Kind)
	}
	return nil
}

func (t *Task) addDependency(id string) error {
	if id == t.UUID {
		return &InvalidDependencyIDError{ID: id, Reason: "task cannot depend on itself"}
	}
	return t.Dependencies.Add(id)
}

// Validate checks invariants that the collections cannot check on their
// own, such as a task depending on itself.
func (t *Task) Validate() error {
	if t.DependsOn(t.UUID) {
		return &InvalidDependencyIDError{ID: t.UUID, Reason: "task cannot depend on itself"}
	}
	return nil
}
