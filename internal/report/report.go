// Package report prints task listings as aligned tables.
//
// The header is underlined and every other task is shown in reverse
// video. Cells may span several lines; a task occupies as many lines as
// its tallest cell.
package report

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/taskdepot/td/internal/task"
)

// column describes a printable task attribute.
type column struct {
	label  string
	format func(*task.Task) string
	// compare orders tasks by the attribute, nil if it cannot be sorted on
	compare func(a, b *task.Task) int
}

var columns = map[string]column{
	"id": {
		label: "ID",
		format: func(t *task.Task) string {
			if !t.HasID() {
				return ""
			}
			return strconv.Itoa(t.ID)
		},
		compare: func(a, b *task.Task) int { return cmp.Compare(a.ID, b.ID) },
	},
	"uuid": {
		label:   "UUID",
		format:  func(t *task.Task) string { return t.UUID },
		compare: func(a, b *task.Task) int { return strings.Compare(a.UUID, b.UUID) },
	},
	"tags": {
		label:  "Tags",
		format: func(t *task.Task) string { return strings.Join(t.Tags.Items(), " ") },
	},
	"urgency": {
		label:   "Urgency",
		format:  func(t *task.Task) string { return strconv.FormatFloat(t.Urgency, 'f', 2, 64) },
		compare: func(a, b *task.Task) int { return cmp.Compare(a.Urgency, b.Urgency) },
	},
	"text": {
		label:   "Description",
		format:  func(t *task.Task) string { return t.Text },
		compare: func(a, b *task.Task) int { return strings.Compare(a.Text, b.Text) },
	},
	"created":   dateColumn("Created", func(t *task.Task) *time.Time { return t.DateCreated }),
	"due":       dateColumn("Due", func(t *task.Task) *time.Time { return t.DateDue }),
	"scheduled": dateColumn("Scheduled", func(t *task.Task) *time.Time { return t.DateScheduled }),
	"completed": dateColumn("Completed", func(t *task.Task) *time.Time { return t.DateCompleted }),
}

// dateColumn formats in local time. Unset dates sort first.
func dateColumn(label string, get func(*task.Task) *time.Time) column {
	return column{
		label: label,
		format: func(t *task.Task) string {
			if ts := get(t); ts != nil {
				return ts.Local().Format("2006-01-02 15:04")
			}
			return ""
		},
		compare: func(a, b *task.Task) int {
			ta, tb := get(a), get(b)
			switch {
			case ta == nil && tb == nil:
				return 0
			case ta == nil:
				return -1
			case tb == nil:
				return 1
			}
			return ta.Compare(*tb)
		},
	}
}

// Columns returns the names of the known columns, sorted.
func Columns() []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sort is a parsed sort specification.
type Sort struct {
	Column     string
	Descending bool
}

// ParseSort parses "<column>+" (ascending) or "<column>-" (descending).
func ParseSort(spec string) (Sort, error) {
	var s Sort
	switch {
	case strings.HasSuffix(spec, "+"):
	case strings.HasSuffix(spec, "-"):
		s.Descending = true
	default:
		return Sort{}, fmt.Errorf("invalid sort specification %q: must end in + or -", spec)
	}
	s.Column = spec[:len(spec)-1]

	col, ok := columns[s.Column]
	if !ok {
		return Sort{}, fmt.Errorf("invalid sort specification %q: unknown column %q", spec, s.Column)
	}
	if col.compare == nil {
		return Sort{}, fmt.Errorf("invalid sort specification %q: cannot sort on %s", spec, s.Column)
	}
	return s, nil
}

func (s Sort) String() string {
	if s.Descending {
		return s.Column + "-"
	}
	return s.Column + "+"
}

// Apply sorts tasks in place. Ties keep their order.
func (s Sort) Apply(tasks []*task.Task) {
	compare := columns[s.Column].compare
	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		if s.Descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

// Printer renders reports to a writer.
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer

	// Sep separates columns.
	Sep   string
	// Width truncates output lines when positive.
	Width int
}

// NewPrinter returns a Printer for w. Styling and truncation are enabled
// only when w is a terminal and NO_COLOR is unset.
func NewPrinter(w io.Writer) *Printer {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) || termenv.EnvNoColor() {
		return New(w, termenv.Ascii, 0)
	}

	p := New(w, termenv.NewOutput(f).EnvColorProfile(), 0)
	if width, _, err := term.GetSize(int(f.Fd())); err == nil {
		p.Width = width
	}
	return p
}

// New returns a Printer with an explicit colour profile and width.
func New(w io.Writer, profile termenv.Profile, width int) *Printer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return &Printer{out: w, renderer: r, Sep: " ", Width: width}
}

// Print writes tasks as a table of the named columns, sorted by sortSpec
// (left alone when empty). tasks is sorted in place.
func (p *Printer) Print(tasks []*task.Task, columnNames []string, sortSpec string) error {
	cols := make([]column, 0, len(columnNames))
	for _, name := range columnNames {
		col, ok := columns[name]
		if !ok {
			return fmt.Errorf("unknown column %q (known: %s)", name, strings.Join(Columns(), ", "))
		}
		cols = append(cols, col)
	}

	if sortSpec != "" {
		s, err := ParseSort(sortSpec)
		if err != nil {
			return err
		}
		s.Apply(tasks)
	}

	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = lipgloss.Width(col.label)
	}

	// rows[task][column] holds the lines of one cell
	rows := make([][][]string, len(tasks))
	for n, t := range tasks {
		cells := make([][]string, len(cols))
		for i, col := range cols {
			cells[i] = strings.Split(col.format(t), "\n")
			for _, line := range cells[i] {
				widths[i] = max(widths[i], lipgloss.Width(line))
			}
		}
		rows[n] = cells
	}

	underline := p.renderer.NewStyle().Underline(true)
	reverse := p.renderer.NewStyle().Reverse(true)
	plain := p.renderer.NewStyle()
	if p.Width > 0 {
		reverse = reverse.MaxWidth(p.Width)
		plain = plain.MaxWidth(p.Width)
	}

	// labels are underlined one by one, the row is clipped as a whole
	labels := make([]string, len(cols))
	for i, col := range cols {
		labels[i] = underline.Render(pad(col.label, widths[i]))
	}
	if _, err := fmt.Fprintln(p.out, plain.Render(strings.Join(labels, p.Sep))); err != nil {
		return err
	}

	for n, cells := range rows {
		style := plain
		if n%2 == 1 {
			style = reverse
		}

		height := 0
		for _, cell := range cells {
			height = max(height, len(cell))
		}
		for line := range height {
			parts := make([]string, len(cells))
			for i, cell := range cells {
				var s string
				if line < len(cell) {
					s = cell[line]
				}
				parts[i] = pad(s, widths[i])
			}
			if _, err := fmt.Fprintln(p.out, style.Render(strings.Join(parts, p.Sep))); err != nil {
				return err
			}
		}
	}
	return nil
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
