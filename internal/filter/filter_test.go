package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/taskdepot/td/internal/task"
)

func newTask(t *testing.T, text string, tags ...string) *task.Task {
	t.Helper()
	tk := task.New()
	tk.Text = text
	for _, tag := range tags {
		if err := tk.Tags.Add(tag); err != nil {
			t.Fatalf("Tags.Add(%q): %v", tag, err)
		}
	}
	return tk
}

func mustParse(t *testing.T, s string) Expr {
	t.Helper()
	expr, err := ParseString(s)
	if err != nil {
		t.Fatalf("ParseString(%q) failed: %v", s, err)
	}
	return expr
}

func TestParse_Empty(t *testing.T) {
	expr, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if !expr.Match(task.New()) {
		t.Error("empty expression must match every task")
	}
}

func TestMatch_TagHierarchy(t *testing.T) {
	work := newTask(t, "plain", "work")
	urgent := newTask(t, "nested", "work.urgent")
	workshop := newTask(t, "prefix only", "workshop")

	expr := mustParse(t, "+work and not flag:blocked")
	if !expr.Match(work) {
		t.Error("+work must match a task tagged work")
	}
	if !expr.Match(urgent) {
		t.Error("+work must match a task tagged work.urgent")
	}
	if expr.Match(workshop) {
		t.Error("+work must not match a task tagged workshop")
	}

	if mustParse(t, "+work.extra").Match(work) {
		t.Error("+work.extra must not match a task tagged plainly work")
	}
}

func TestMatch_Terms(t *testing.T) {
	due := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

	tk := newTask(t, "buy milk and bread", "home", "errand.shop")
	tk.ID = 3
	tk.DateDue = &due
	tk.Urgency = 4.5
	tk.Blocking = true

	tests := []struct {
		expr string
		want bool
	}{
		{"uuid:" + tk.UUID, true},
		{"uuid:" + task.New().UUID, false},
		{"3", true},
		{"1,2,3", true},
		{"id:4", false},
		{"milk", true},
		{"Milk", false},
		{"text:bread", true},
		{"tag:office,errand", true},
		{"tag:office", false},
		{"+home,office", true},
		{"due:2026-11-01T12:00:00Z", true},
		{"due:2026-11-01T13:00:00+01:00", true},
		{"due:2026-11-01T12:00:01Z", false},
		{"scheduled:2026-11-01T12:00:00Z", false},
		{"flag:blocking", true},
		{"flag:blocked", false},
		{"urgency.above:4.5", true},
		{"urgency.below:4.5", true},
		{"urgency.above:5", false},
		{"URGENCY.BELOW:1", false},
		{"unknown:prefix", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := mustParse(t, tt.expr).Match(tk); got != tt.want {
				t.Errorf("%q.Match() = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestMatch_NoShortID(t *testing.T) {
	tk := newTask(t, "x")
	if mustParse(t, "0").Match(tk) {
		t.Error("a task without a short ID must not match id filters")
	}
}

func TestMatch_Operators(t *testing.T) {
	a := newTask(t, "a", "x")
	b := newTask(t, "b", "y")
	ab := newTask(t, "a b", "x", "y")

	tests := []struct {
		expr string
		want [3]bool // a, b, ab
	}{
		{"+x and +y", [3]bool{false, false, true}},
		{"+x or +y", [3]bool{true, true, true}},
		{"not +x", [3]bool{false, true, false}},
		{"not +x or +y", [3]bool{false, true, true}},
		{"not (+x or +y)", [3]bool{false, false, false}},
		{"+x or +y and not +x", [3]bool{true, true, true}},
		{"(+x or +y) and not +x", [3]bool{false, true, false}},
		{"not not +x", [3]bool{true, false, true}},
		{"((+y))", [3]bool{false, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr := mustParse(t, tt.expr)
			got := [3]bool{expr.Match(a), expr.Match(b), expr.Match(ab)}
			if got != tt.want {
				t.Errorf("%q matched %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParse_OperatorWordsAsText(t *testing.T) {
	tk := newTask(t, "rock and roll or not")

	tests := []string{
		"and",
		"or",
		"not",
		"rock and and",
		"(not)",
		"roll and not",
	}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			if !mustParse(t, s).Match(tk) {
				t.Errorf("%q did not match %q", s, tk.Text)
			}
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		expr string
		pos  int
	}{
		{"(", 1},
		{"a and", 2},
		{"a) b", 1},
		{"a b", 1},
		{"(a or b", 0},
		{"()", 1},
		{"a or )", 2},
		{"id:x", 0},
		{"due:someday", 0},
		{"flag:urgent", 0},
		{"urgency.above:high", 0},
		{"tag:a,,b", 0},
		{"+a and +,b", 2},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseString(tt.expr)
			if err == nil {
				t.Fatalf("ParseString(%q) = %v, want syntax error", tt.expr, expr)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %v is not a *SyntaxError", err)
			}
			if se.Pos != tt.pos {
				t.Errorf("Pos = %d, want %d (%v)", se.Pos, tt.pos, err)
			}
		})
	}
}

func TestParse_SplitsParentheses(t *testing.T) {
	tk := newTask(t, "x", "b")

	expr, err := Parse([]string{"(+a", "or", "+b)", "and", "x"})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !expr.Match(tk) {
		t.Error("expected match")
	}
}

func TestParse_TrailingParenthesisIsSplit(t *testing.T) {
	var se *SyntaxError
	if _, err := Parse([]string{"text:(foo)"}); !errors.As(err, &se) || se.Pos != 1 {
		t.Errorf("Parse(text:(foo)) error = %v, want a syntax error at the split-off )", err)
	}

	expr, err := Parse([]string{"(text:(foo)"})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !expr.Match(newTask(t, "see (foo bar")) {
		t.Error("text term should be (foo without the closing parenthesis")
	}
}

func TestParse_ArgumentKeepsSpaces(t *testing.T) {
	tk := newTask(t, "buy milk")

	expr, err := Parse([]string{"text:buy milk"})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !expr.Match(tk) {
		t.Error("a single argument is a single term")
	}
}

func TestExpr_StringRoundTrip(t *testing.T) {
	tests := []string{
		"+work and not flag:blocked",
		"(1,2 or uuid:abc) and text:milk",
		"due:2026-11-01T12:00:00Z or urgency.above:2.5",
		"not (tag:a,b or flag:blocking) and urgency.below:-1",
	}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			first := mustParse(t, s)
			second := mustParse(t, first.String())
			if first.String() != second.String() {
				t.Errorf("String() not stable: %q -> %q", first.String(), second.String())
			}
		})
	}
}
