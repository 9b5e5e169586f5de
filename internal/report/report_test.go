package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taskdepot/td/internal/task"
)

func mkTask(id int, text string, urgency float64, tags ...string) *task.Task {
	t := task.New()
	t.ID = id
	t.Text = text
	t.Urgency = urgency
	for _, tag := range tags {
		t.Tags.Add(tag)
	}
	return t
}

func lines(buf *bytes.Buffer) []string {
	out := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	for i := range out {
		out[i] = strings.TrimRight(out[i], " ")
	}
	return out
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		spec    string
		want    Sort
		wantErr bool
	}{
		{spec: "id+", want: Sort{Column: "id"}},
		{spec: "urgency-", want: Sort{Column: "urgency", Descending: true}},
		{spec: "due+", want: Sort{Column: "due"}},
		{spec: "urgency", wantErr: true},
		{spec: "", wantErr: true},
		{spec: "bogus+", wantErr: true},
		{spec: "tags+", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseSort(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSort(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err == nil && (got != tt.want || got.String() != tt.spec) {
				t.Errorf("ParseSort(%q) = %+v", tt.spec, got)
			}
		})
	}
}

func TestSortApply_Stable(t *testing.T) {
	a := mkTask(0, "a", 1)
	b := mkTask(1, "b", 5)
	c := mkTask(2, "c", 1)
	tasks := []*task.Task{a, b, c}

	Sort{Column: "urgency", Descending: true}.Apply(tasks)
	if tasks[0] != b || tasks[1] != a || tasks[2] != c {
		t.Errorf("urgency- order = %s %s %s, want b a c", tasks[0].Text, tasks[1].Text, tasks[2].Text)
	}

	Sort{Column: "id"}.Apply(tasks)
	if tasks[0] != a || tasks[1] != b || tasks[2] != c {
		t.Errorf("id+ order = %s %s %s, want a b c", tasks[0].Text, tasks[1].Text, tasks[2].Text)
	}
}

func TestSortApply_UnsetDatesFirst(t *testing.T) {
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := mkTask(0, "a", 0)
	a.DateDue = &due
	b := mkTask(1, "b", 0)
	tasks := []*task.Task{a, b}

	Sort{Column: "due"}.Apply(tasks)
	if tasks[0] != b {
		t.Errorf("due+ put %s first, want the task without a due date", tasks[0].Text)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, termenv.Ascii, 0)

	tasks := []*task.Task{
		mkTask(0, "buy milk", 1.5, "home"),
		mkTask(1, "write report\nsecond line", 20, "work", "work.urgent"),
		mkTask(task.NoID, "new", 0),
	}

	if err := p.Print(tasks, []string{"id", "tags", "urgency", "text"}, "urgency-"); err != nil {
		t.Fatalf("Print() failed: %v", err)
	}

	want := []string{
		"ID Tags             Urgency Description",
		"1  work work.urgent 20.00   write report",
		"                            second line",
		"0  home             1.50    buy milk",
		"                    0.00    new",
	}
	got := lines(&buf)
	if len(got) != len(want) {
		t.Fatalf("Print() wrote %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPrint_Styled(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, termenv.ANSI, 0)

	tasks := []*task.Task{mkTask(0, "a", 0), mkTask(1, "b", 0)}
	if err := p.Print(tasks, []string{"id", "text"}, ""); err != nil {
		t.Fatalf("Print() failed: %v", err)
	}

	got := strings.Split(buf.String(), "\n")
	if !strings.Contains(got[0], "\x1b[") {
		t.Errorf("header %q is not styled", got[0])
	}
	if strings.Contains(got[1], "\x1b[") {
		t.Errorf("first task %q should be plain", got[1])
	}
	if !strings.Contains(got[2], "\x1b[7m") {
		t.Errorf("second task %q should be in reverse video", got[2])
	}
}

func TestPrint_Width(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, termenv.Ascii, 10)

	tasks := []*task.Task{mkTask(0, "a rather long description", 0)}
	if err := p.Print(tasks, []string{"id", "text"}, ""); err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	got := lines(&buf)
	for _, line := range got {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width 10", line)
		}
	}
	if got[0] != "ID Descrip" {
		t.Errorf("header = %q, want %q", got[0], "ID Descrip")
	}
}

func TestPrint_WidthStyledHeader(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, termenv.ANSI, 10)

	tasks := []*task.Task{mkTask(0, "a rather long description", 0), mkTask(1, "b", 0)}
	if err := p.Print(tasks, []string{"id", "text"}, ""); err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if !strings.Contains(got[0], "\x1b[") {
		t.Errorf("header %q is not styled", got[0])
	}
	for _, line := range got {
		if w := lipgloss.Width(line); w > 10 {
			t.Errorf("line %q is %d cells wide, want at most 10", line, w)
		}
	}
}

func TestPrint_Errors(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, termenv.Ascii, 0)
	tasks := []*task.Task{mkTask(0, "a", 0)}

	if err := p.Print(tasks, []string{"id", "priority"}, ""); err == nil {
		t.Error("Print() accepted an unknown column")
	}
	if err := p.Print(tasks, []string{"id"}, "id"); err == nil {
		t.Error("Print() accepted a sort spec without direction")
	}
	if buf.Len() != 0 {
		t.Errorf("Print() wrote output before failing: %q", buf.String())
	}
}
