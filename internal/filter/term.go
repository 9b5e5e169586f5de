package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/taskdepot/td/internal/task"
)

// Expr is a parsed filter expression.
type Expr interface {
	// Match reports whether t satisfies the expression.
	Match(t *task.Task) bool

	// String renders the expression in a form Parse accepts.
	String() string
}

// all matches every task; it is what an empty expression parses to.
type all struct{}

func (all) Match(*task.Task) bool { return true }
func (all) String() string        { return "" }

type uuidTerm struct {
	uuid string
}

func (e uuidTerm) Match(t *task.Task) bool { return t.UUID == e.uuid }
func (e uuidTerm) String() string          { return "uuid:" + e.uuid }

// idTerm matches any of a set of short IDs.
type idTerm struct {
	ids []int
}

func (e idTerm) Match(t *task.Task) bool {
	return t.HasID() && slices.Contains(e.ids, t.ID)
}

func (e idTerm) String() string {
	parts := make([]string, len(e.ids))
	for i, id := range e.ids {
		parts[i] = strconv.Itoa(id)
	}
	return "id:" + strings.Join(parts, ",")
}

// textTerm is a case-sensitive substring match on the description.
type textTerm struct {
	text string
}

func (e textTerm) Match(t *task.Task) bool { return strings.Contains(t.Text, e.text) }
func (e textTerm) String() string          { return "text:" + e.text }

// tagTerm matches tasks carrying any of its tags, hierarchically.
type tagTerm struct {
	tags []string
}

func (e tagTerm) Match(t *task.Task) bool {
	for _, tag := range e.tags {
		if t.HasTag(tag) {
			return true
		}
	}
	return false
}

func (e tagTerm) String() string { return "tag:" + strings.Join(e.tags, ",") }

type dateField string

const (
	fieldCreated   dateField = "created"
	fieldDue       dateField = "due"
	fieldScheduled dateField = "scheduled"
)

// dateTerm matches a date field equal to an exact instant.
type dateTerm struct {
	field dateField
	at    time.Time
}

func (e dateTerm) Match(t *task.Task) bool {
	var ts *time.Time
	switch e.field {
	case fieldCreated:
		ts = t.DateCreated
	case fieldDue:
		ts = t.DateDue
	case fieldScheduled:
		ts = t.DateScheduled
	}
	return ts != nil && ts.Equal(e.at)
}

func (e dateTerm) String() string {
	return string(e.field) + ":" + e.at.UTC().Format(time.RFC3339Nano)
}

type flag string

const (
	flagBlocked  flag = "blocked"
	flagBlocking flag = "blocking"
)

type flagTerm struct {
	flag flag
}

func (e flagTerm) Match(t *task.Task) bool {
	if e.flag == flagBlocked {
		return t.Blocked
	}
	return t.Blocking
}

func (e flagTerm) String() string { return "flag:" + string(e.flag) }

// urgencyTerm compares urgency against a threshold. Both directions are
// inclusive.
type urgencyTerm struct {
	above     bool
	threshold float64
}

func (e urgencyTerm) Match(t *task.Task) bool {
	if e.above {
		return t.Urgency >= e.threshold
	}
	return t.Urgency <= e.threshold
}

func (e urgencyTerm) String() string {
	dir := "below"
	if e.above {
		dir = "above"
	}
	return fmt.Sprintf("urgency.%s:%s", dir, strconv.FormatFloat(e.threshold, 'g', -1, 64))
}

// parseTerm recognizes a single operand token.
func parseTerm(tok string, pos int) (Expr, error) {
	fail := func(format string, args ...any) error {
		return &SyntaxError{Pos: pos, Token: tok, Msg: fmt.Sprintf(format, args...)}
	}

	if prefix, val, ok := strings.Cut(tok, ":"); ok {
		switch strings.ToLower(prefix) {
		case "uuid":
			return uuidTerm{uuid: val}, nil

		case "id":
			ids, ok := parseIDs(val)
			if !ok {
				return nil, fail("invalid short ID list %q", val)
			}
			return idTerm{ids: ids}, nil

		case "text":
			return textTerm{text: val}, nil

		case "tag", "tags":
			tags := strings.Split(val, ",")
			if slices.Contains(tags, "") {
				return nil, fail("empty tag name")
			}
			return tagTerm{tags: tags}, nil

		case "created", "due", "scheduled":
			at, err := task.ParseTimestamp(val)
			if err != nil {
				return nil, fail("invalid timestamp %q", val)
			}
			return dateTerm{field: dateField(strings.ToLower(prefix)), at: at}, nil

		case "flag":
			switch f := flag(strings.ToLower(val)); f {
			case flagBlocked, flagBlocking:
				return flagTerm{flag: f}, nil
			}
			return nil, fail("unknown flag %q (want blocked or blocking)", val)

		case "urgency.above", "urgency.below":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fail("invalid urgency threshold %q", val)
			}
			return urgencyTerm{above: strings.HasSuffix(strings.ToLower(prefix), "above"), threshold: v}, nil
		}
	}

	if ids, ok := parseIDs(tok); ok {
		return idTerm{ids: ids}, nil
	}

	if rest, ok := strings.CutPrefix(tok, "+"); ok && rest != "" {
		tags := strings.Split(rest, ",")
		if slices.Contains(tags, "") {
			return nil, fail("empty tag name")
		}
		return tagTerm{tags: tags}, nil
	}

	return textTerm{text: tok}, nil
}

// parseIDs parses a comma-separated list of non-negative integers.
func parseIDs(s string) ([]int, bool) {
	if s == "" {
		return nil, false
	}

	var ids []int
	for _, part := range strings.Split(s, ",") {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return nil, false
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		ids = append(ids, n)
	}
	return ids, true
}
